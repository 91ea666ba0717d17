package main

import (
	"fmt"
	"os"

	"github.com/LerianStudio/midaz/common"
)

// main boots the control-plane process: the tamper-evident action
// ledger, the scope-isolated knowledge base router, and the
// self-improvement ingest pipeline, all behind one fiber HTTP surface.
func main() {
	common.InitLocalEnvConfig()

	service, err := initServers()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize control plane: %v\n", err)
		os.Exit(1)
	}

	common.NewLauncher(
		common.WithLogger(service.Logger),
		common.RunApp("HTTP Service", service.Server),
	).Run()

	service.Shutdown()
}
