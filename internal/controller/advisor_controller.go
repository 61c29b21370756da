package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"pc-build-advisor-be/internal/dto"
	"pc-build-advisor-be/internal/pkg/serverutils"
	"pc-build-advisor-be/internal/repository/contract"
	"pc-build-advisor-be/internal/service"
	"pc-build-advisor-be/pkg/build/session"
	"pc-build-advisor-be/pkg/rag/generator"
	"pc-build-advisor-be/pkg/rag/retriever"
)

type IAdvisorController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	StartSession(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
	SelectComponent(ctx *fiber.Ctx) error
	SkipStep(ctx *fiber.Ctx) error
}

type advisorController struct {
	advisorService service.IAdvisorService
}

func NewAdvisorController(advisorService service.IAdvisorService) IAdvisorController {
	return &advisorController{
		advisorService: advisorService,
	}
}

func (c *advisorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/advisor/v1")
	h.Post("chat", c.Chat)
	h.Post("session", c.StartSession)
	h.Get("session/:id", c.ShowSession)
	h.Post("session/:id/select", c.SelectComponent)
	h.Post("session/:id/skip", c.SkipStep)
}

func (c *advisorController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.advisorService.Chat(ctx.Context(), &req)
	if err != nil {
		return mapAdvisorError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *advisorController) StartSession(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.advisorService.StartSession(ctx.Context(), &req)
	if err != nil {
		return mapAdvisorError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Build session started", res))
}

func (c *advisorController) ShowSession(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	res, err := c.advisorService.GetSession(ctx.Context(), id)
	if err != nil {
		return mapAdvisorError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *advisorController) SelectComponent(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	var req dto.SelectComponentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.advisorService.SelectComponent(ctx.Context(), id, &req)
	if err != nil {
		return mapAdvisorError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Component selected", res))
}

func (c *advisorController) SkipStep(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	res, err := c.advisorService.SkipStep(ctx.Context(), id)
	if err != nil {
		return mapAdvisorError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Step skipped", res))
}

// mapAdvisorError translates domain errors into HTTP responses. A blocked
// selection is not a failure shape: it returns 409 with the verdicts so the
// client can show why and offer the remaining options.
func mapAdvisorError(ctx *fiber.Ctx, err error) error {
	var blocked *session.BlockedError
	if errors.As(err, &blocked) {
		views := make([]dto.VerdictView, len(blocked.Verdicts))
		for i, v := range blocked.Verdicts {
			views[i] = dto.VerdictView{
				Check:    v.Check,
				Severity: string(v.Severity),
				Reason:   v.Reason,
				Against:  v.Against,
			}
		}
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.BaseResponse[[]dto.VerdictView]{
			Success: false,
			Code:    fiber.StatusConflict,
			Message: blocked.Error(),
			Data:    views,
		})
	}

	var malformed *generator.MalformedError
	if errors.As(err, &malformed) {
		return fiber.NewError(fiber.StatusBadGateway, "The model returned an unusable answer, please retry")
	}

	switch {
	case errors.Is(err, contract.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Session not found or expired")
	case errors.Is(err, session.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, "Session is handling another request")
	case errors.Is(err, session.ErrCandidateNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Component not found in catalog")
	case errors.Is(err, session.ErrNotStepping),
		errors.Is(err, session.ErrStepRequired),
		errors.Is(err, session.ErrWrongCategory),
		errors.Is(err, session.ErrBudgetRequired):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, retriever.ErrIndexQuery):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Catalog index is unavailable")
	}
	return err
}
