package controller

import (
	"github.com/gofiber/fiber/v2"

	"pc-build-advisor-be/internal/pkg/logger"
	"pc-build-advisor-be/internal/pkg/serverutils"
)

type IOpsController interface {
	RegisterRoutes(r fiber.Router)
	ListLogs(ctx *fiber.Ctx) error
	ShowLog(ctx *fiber.Ctx) error
}

// opsController exposes the rotated log file for operations tooling.
type opsController struct {
	logs logger.ILogReader
}

func NewOpsController(logs logger.ILogReader) IOpsController {
	return &opsController{logs: logs}
}

func (c *opsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ops/v1")
	h.Get("logs", c.ListLogs)
	h.Get("logs/:id", c.ShowLog)
}

func (c *opsController) ListLogs(ctx *fiber.Ctx) error {
	level := ctx.Query("level")
	limit := ctx.QueryInt("limit", 100)
	offset := ctx.QueryInt("offset", 0)

	entries, err := c.logs.GetLogs(level, limit, offset)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to read logs")
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", entries))
}

func (c *opsController) ShowLog(ctx *fiber.Ctx) error {
	entry, err := c.logs.GetLogById(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Log entry not found")
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", entry))
}
