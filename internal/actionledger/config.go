package actionledger

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/LerianStudio/midaz/common"
)

// Config configures a ledger instance.
type Config struct {
	// Path is the append-only file's location on disk.
	Path string
	// Key is the raw 32-byte AES-256-GCM key.
	Key [32]byte
}

// insecureDevKey is a fixed, obviously insecure key for local development.
// It must never back a regulated or production deployment.
func insecureDevKey() [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = 0x42
	}

	return k
}

// ConfigFromEnv builds a Config from ACTION_LEDGER_PATH and
// ACTION_LEDGER_KEY (a 64-character hex string). If the key is absent or
// malformed, it falls back to the insecure dev key and logs a warning to
// stderr rather than failing construction, mirroring the original's
// loud-but-non-fatal stance on a missing production key.
func ConfigFromEnv() Config {
	path := common.GetenvOrDefault("ACTION_LEDGER_PATH", "data/action-ledger/ledger.bin")

	hexKey := os.Getenv("ACTION_LEDGER_KEY")
	if hexKey == "" {
		fmt.Fprintln(os.Stderr, "WARNING: ACTION_LEDGER_KEY not set; using insecure dev key")

		return Config{Path: path, Key: insecureDevKey()}
	}

	key, err := decodeHexKey(hexKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: invalid ACTION_LEDGER_KEY: %v; using insecure dev key\n", err)

		return Config{Path: path, Key: insecureDevKey()}
	}

	return Config{Path: path, Key: key}
}

func decodeHexKey(s string) ([32]byte, error) {
	var out [32]byte

	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return out, err
	}

	if len(b) != 32 {
		return out, fmt.Errorf("expected 32-byte key, got %d bytes", len(b))
	}

	copy(out[:], b)

	return out, nil
}
