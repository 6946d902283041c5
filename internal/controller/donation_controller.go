package controller

import (
	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/pkg/serverutils"
	"sharecycle-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDonationController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	ListMine(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	ListRequests(ctx *fiber.Ctx) error
}

type donationController struct {
	donationService service.IDonationService
	requestService  service.IRequestService
	jwtSecret       string
}

func NewDonationController(donationService service.IDonationService, requestService service.IRequestService, jwtSecret string) IDonationController {
	return &donationController{
		donationService: donationService,
		requestService:  requestService,
		jwtSecret:       jwtSecret,
	}
}

func (c *donationController) RegisterRoutes(r fiber.Router) {
	auth := serverutils.JwtMiddleware(c.jwtSecret)

	h := r.Group("/donations")
	h.Get("", c.List)
	h.Get("mine", auth, c.ListMine)
	h.Post("", auth, c.Create)
	h.Get(":id", c.Show)
	h.Put(":id", auth, c.Update)
	h.Delete(":id", auth, c.Delete)
	h.Post(":id/cancel", auth, c.Cancel)
	h.Get(":id/requests", auth, c.ListRequests)
}

func (c *donationController) List(ctx *fiber.Ctx) error {
	var query dto.ListDonationsQuery
	if err := serverutils.ParseQuery(ctx, &query); err != nil {
		return err
	}

	res, err := c.donationService.List(ctx.UserContext(), &query)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list donations", res))
}

func (c *donationController) Show(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.donationService.Show(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show donation", res))
}

func (c *donationController) ListMine(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.donationService.ListMine(ctx.UserContext(), userId, ctx.Query("status"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list own donations", res))
}

func (c *donationController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateDonationRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.donationService.Create(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create donation", res))
}

func (c *donationController) Update(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateDonationRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}
	req.Id = id

	res, err := c.donationService.Update(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update donation", res))
}

func (c *donationController) Delete(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.donationService.Deactivate(ctx.UserContext(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete donation", nil))
}

func (c *donationController) Cancel(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.donationService.Cancel(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success cancel donation", res))
}

func (c *donationController) ListRequests(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.requestService.ListForDonation(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list donation requests", res))
}
