package datarouter

import (
	"github.com/LerianStudio/midaz/common"
	commonHTTP "github.com/LerianStudio/midaz/common/net/http"
	"github.com/gofiber/fiber/v2"
)

// Handler exposes Router over HTTP: one knowledge base per :name path
// segment, the calling principal resolved from the bearer token a
// JWTMiddleware.Protect() has already verified upstream.
type Handler struct {
	router *Router
}

// NewHandler wires a Handler against router.
func NewHandler(router *Router) *Handler {
	return &Handler{router: router}
}

// RegisterRoutes mounts the knowledge-base surface under app (or a
// fiber.Router group already scoped to /v1/kb).
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/:name/query", commonHTTP.WithBody(&QueryRequest{}, h.Query))
	router.Post("/:name/items", commonHTTP.WithBody(&kbItemInput{}, h.StoreItem))
	router.Get("/:name/items/:id", h.RetrieveItem)
	router.Post("/agents/:id", commonHTTP.WithBody(&registerAgentInput{}, h.RegisterAgent))
}

func principalOrPublic(c *fiber.Ctx) Principal {
	if p, ok := commonHTTP.PrincipalFromContext(c); ok && p != "" {
		return p
	}

	return string(ScopePublic)
}

// Query handles POST /v1/kb/:name/query. p has already been decoded,
// rejected-if-unknown-fields, and validated by commonHTTP.WithBody.
func (h *Handler) Query(p any, c *fiber.Ctx) error {
	kbName := c.Params("name")

	req, ok := p.(*QueryRequest)
	if !ok {
		return commonHTTP.WithError(c, common.New(common.KindInternal, "unexpected query request payload type"))
	}

	result, err := h.router.Query(c.UserContext(), principalOrPublic(c), kbName, *req)
	if err != nil {
		return commonHTTP.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// kbItemInput is the request body for a store call: a caller supplies
// content and optional metadata, never an id (the store assigns one).
type kbItemInput struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// StoreItem handles POST /v1/kb/:name/items. p has already been decoded,
// rejected-if-unknown-fields, and validated by commonHTTP.WithBody.
func (h *Handler) StoreItem(p any, c *fiber.Ctx) error {
	kbName := c.Params("name")

	input, ok := p.(*kbItemInput)
	if !ok {
		return commonHTTP.WithError(c, common.New(common.KindInternal, "unexpected item payload type"))
	}

	item := KBItem{Content: input.Content, Metadata: input.Metadata}

	id, err := h.router.Store(c.UserContext(), principalOrPublic(c), kbName, item)
	if err != nil {
		return commonHTTP.WithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// RetrieveItem handles GET /v1/kb/:name/items/:id.
func (h *Handler) RetrieveItem(c *fiber.Ctx) error {
	kbName := c.Params("name")
	id := c.Params("id")

	item, err := h.router.RetrieveByID(c.UserContext(), principalOrPublic(c), kbName, id)
	if err != nil {
		return commonHTTP.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(item)
}

// registerAgentInput is the request body for POST /v1/kb/agents/:id: the
// caller-supplied replacement scope list for the principal named by :id.
type registerAgentInput struct {
	Scopes []Scope `json:"scopes"`
}

// RegisterAgent handles POST /v1/kb/agents/:id. It is an administration
// endpoint: unlike Query/StoreItem/RetrieveItem it does not go through
// scope validation itself, since assigning scopes is the operation that
// scope validation is built on top of. Deployments expose it only behind
// a route group already restricted to an operator/admin principal.
func (h *Handler) RegisterAgent(p any, c *fiber.Ctx) error {
	id := c.Params("id")

	input, ok := p.(*registerAgentInput)
	if !ok {
		return commonHTTP.WithError(c, common.New(common.KindInternal, "unexpected agent registration payload type"))
	}

	h.router.RegisterAgent(Principal(id), input.Scopes)

	return c.SendStatus(fiber.StatusNoContent)
}
