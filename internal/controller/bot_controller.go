package controller

import (
	"nyan-bot/internal/dto"
	"nyan-bot/internal/pkg/serverutils"
	"nyan-bot/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ConnectionCounter reports live chat connections. Implemented by the websocket hub.
type ConnectionCounter interface {
	ConnectionCount() int
}

type IBotController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	SetStyleMode(ctx *fiber.Ctx) error
	ListUsage(ctx *fiber.Ctx) error
	GetUsage(ctx *fiber.Ctx) error
}

type botController struct {
	service     service.IBotService
	connections ConnectionCounter
	auth        fiber.Handler
}

func NewBotController(service service.IBotService, connections ConnectionCounter, auth fiber.Handler) IBotController {
	return &botController{service: service, connections: connections, auth: auth}
}

func (c *botController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)

	h := r.Group("/bot")
	h.Use(c.auth)
	h.Get("/status", c.Status)
	h.Put("/style-mode", c.SetStyleMode)
	h.Get("/usage", c.ListUsage)
	h.Get("/usage/:requester", c.GetUsage)
}

func (c *botController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", nil))
}

func (c *botController) Status(ctx *fiber.Ctx) error {
	res := c.service.Status()
	if c.connections != nil {
		res.Connections = c.connections.ConnectionCount()
	}
	return ctx.JSON(serverutils.SuccessResponse("Bot status", res))
}

func (c *botController) SetStyleMode(ctx *fiber.Ctx) error {
	var req dto.StyleModeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	requester, _ := ctx.Locals("user_id").(string)
	msg, err := c.service.SetStyleMode(ctx.UserContext(), requester, req.Status)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse(msg, dto.StyleModeResponse{
		StyleMode: req.Status == "on",
		Message:   msg,
	}))
}

func (c *botController) ListUsage(ctx *fiber.Ctx) error {
	res, err := c.service.ListUsage(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Usage", res))
}

func (c *botController) GetUsage(ctx *fiber.Ctx) error {
	res, err := c.service.GetUsage(ctx.UserContext(), ctx.Params("requester"))
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "No usage recorded for this requester")
	}
	return ctx.JSON(serverutils.SuccessResponse("Usage", res))
}
