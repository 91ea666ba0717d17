package actionledger

import (
	"github.com/LerianStudio/midaz/common"
	commonHTTP "github.com/LerianStudio/midaz/common/net/http"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handler exposes Ledger over HTTP so operators and other services can
// commit critical actions without linking against this package directly.
type Handler struct {
	ledger *Ledger
}

// NewHandler wires a Handler against ledger.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// RegisterRoutes mounts the ledger surface under router (typically a
// fiber.Router group already scoped to /v1/ledger).
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/actions", commonHTTP.WithBody(&ActionPlanStep{}, h.CommitPreExecution))
	router.Post("/actions/:id/outcome", commonHTTP.WithBody(&ActionOutcome{}, h.CommitPostExecution))
}

// CommitPreExecution handles POST /v1/ledger/actions. p has already been
// decoded, rejected-if-unknown-fields, and validated by commonHTTP.WithBody.
func (h *Handler) CommitPreExecution(p any, c *fiber.Ctx) error {
	step, ok := p.(*ActionPlanStep)
	if !ok {
		return commonHTTP.WithError(c, common.New(common.KindInternal, "unexpected action plan step payload type"))
	}

	id, err := h.ledger.CommitPreExecution(c.UserContext(), *step)
	if err != nil {
		return commonHTTP.WithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// CommitPostExecution handles POST /v1/ledger/actions/:id/outcome. p has
// already been decoded, rejected-if-unknown-fields, and validated by
// commonHTTP.WithBody.
func (h *Handler) CommitPostExecution(p any, c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return commonHTTP.WithError(c, common.New(common.KindValidation, "malformed action id: "+err.Error()))
	}

	outcome, ok := p.(*ActionOutcome)
	if !ok {
		return commonHTTP.WithError(c, common.New(common.KindInternal, "unexpected action outcome payload type"))
	}

	if err := h.ledger.CommitPostExecution(c.UserContext(), id, *outcome); err != nil {
		return commonHTTP.WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
