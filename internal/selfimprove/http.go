package selfimprove

import (
	"github.com/LerianStudio/midaz/common"
	commonHTTP "github.com/LerianStudio/midaz/common/net/http"
	"github.com/gofiber/fiber/v2"
)

// Handler exposes SelfImprover over HTTP so an orchestrator or reflection
// process running out-of-process can submit a CriticalFailure without
// importing this package directly.
type Handler struct {
	engine *SelfImprover
}

// NewHandler wires a Handler against engine.
func NewHandler(engine *SelfImprover) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes mounts the self-improvement submission endpoint.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/v1/self-improve/failures", h.Submit)
}

// Submit accepts a CriticalFailure as its JSON body and hands it to the
// engine. The response carries no body beyond 202 Accepted: this endpoint
// is fire-and-forget from the caller's perspective, matching the engine's
// own best-effort posture toward its downstream publish step.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var failure CriticalFailure
	if err := c.BodyParser(&failure); err != nil {
		return commonHTTP.WithError(c, common.New(common.KindValidation, "invalid critical failure payload: "+err.Error()))
	}

	if failure.RequestID == "" || failure.FailureType == "" {
		return commonHTTP.WithError(c, common.New(common.KindValidation, "request_id and failure_type are required"))
	}

	if err := h.engine.Submit(c.UserContext(), failure); err != nil {
		return commonHTTP.WithError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}
