package controller

import (
	"nyan-bot/internal/dto"
	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type ILogController interface {
	RegisterRoutes(r fiber.Router)
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
}

type logController struct {
	logger logger.ILogger
	auth   fiber.Handler
}

func NewLogController(log logger.ILogger, auth fiber.Handler) ILogController {
	return &logController{logger: log, auth: auth}
}

func (c *logController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/logs")
	h.Use(c.auth)
	h.Get("", c.GetLogs)
	h.Get("/:id", c.GetLogDetail)
}

func (c *logController) GetLogs(ctx *fiber.Ctx) error {
	var req dto.LogListRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.Limit == 0 {
		req.Limit = 50
	}

	logs, err := c.logger.GetLogs(req.Level, req.Limit, req.Offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Logs", logs))
}

func (c *logController) GetLogDetail(ctx *fiber.Ctx) error {
	entry, err := c.logger.GetLogById(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return ctx.JSON(serverutils.SuccessResponse("Log detail", entry))
}
