package controller

import (
	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/pkg/serverutils"
	"sharecycle-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRequestController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	ListSent(ctx *fiber.Ctx) error
	ListReceived(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Approve(ctx *fiber.Ctx) error
	Reject(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Complete(ctx *fiber.Ctx) error
	SchedulePickup(ctx *fiber.Ctx) error
}

type requestController struct {
	requestService service.IRequestService
	jwtSecret      string
}

func NewRequestController(requestService service.IRequestService, jwtSecret string) IRequestController {
	return &requestController{
		requestService: requestService,
		jwtSecret:      jwtSecret,
	}
}

func (c *requestController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/requests")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("", c.Create)
	h.Get("sent", c.ListSent)
	h.Get("received", c.ListReceived)
	h.Get(":id", c.Show)
	h.Post(":id/approve", c.Approve)
	h.Post(":id/reject", c.Reject)
	h.Post(":id/cancel", c.Cancel)
	h.Post(":id/complete", c.Complete)
	h.Post(":id/schedule", c.SchedulePickup)
}

// actor resolves the caller and the :id path parameter.
func actor(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userId, id, nil
}

// optionalBody parses a body that may be omitted entirely.
func optionalBody(ctx *fiber.Ctx, out interface{}) error {
	if len(ctx.Body()) == 0 {
		return serverutils.ValidateRequest(out)
	}
	return serverutils.ParseBody(ctx, out)
}

func (c *requestController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateRequestRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.requestService.Create(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create request", res))
}

func (c *requestController) ListSent(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var query dto.ListRequestsQuery
	if err := serverutils.ParseQuery(ctx, &query); err != nil {
		return err
	}

	res, err := c.requestService.ListSent(ctx.UserContext(), userId, query.Status)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list sent requests", res))
}

func (c *requestController) ListReceived(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var query dto.ListRequestsQuery
	if err := serverutils.ParseQuery(ctx, &query); err != nil {
		return err
	}

	res, err := c.requestService.ListReceived(ctx.UserContext(), userId, query.Status)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list received requests", res))
}

func (c *requestController) Show(ctx *fiber.Ctx) error {
	userId, id, err := actor(ctx)
	if err != nil {
		return err
	}

	res, err := c.requestService.Show(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show request", res))
}

func (c *requestController) Approve(ctx *fiber.Ctx) error {
	userId, id, err := actor(ctx)
	if err != nil {
		return err
	}

	var req dto.ApproveRequestRequest
	if err := optionalBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.requestService.Approve(ctx.UserContext(), userId, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success approve request", res))
}

func (c *requestController) Reject(ctx *fiber.Ctx) error {
	userId, id, err := actor(ctx)
	if err != nil {
		return err
	}

	var req dto.RejectRequestRequest
	if err := optionalBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.requestService.Reject(ctx.UserContext(), userId, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reject request", res))
}

func (c *requestController) Cancel(ctx *fiber.Ctx) error {
	userId, id, err := actor(ctx)
	if err != nil {
		return err
	}

	res, err := c.requestService.Cancel(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success cancel request", res))
}

func (c *requestController) Complete(ctx *fiber.Ctx) error {
	userId, id, err := actor(ctx)
	if err != nil {
		return err
	}

	res, err := c.requestService.Complete(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success complete request", res))
}

func (c *requestController) SchedulePickup(ctx *fiber.Ctx) error {
	userId, id, err := actor(ctx)
	if err != nil {
		return err
	}

	var req dto.SchedulePickupRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.requestService.SchedulePickup(ctx.UserContext(), userId, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success schedule pickup", res))
}
