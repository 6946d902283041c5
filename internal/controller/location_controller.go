// FILE: internal/controller/location_controller.go
package controller

import (
	"strconv"
	"strings"

	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/pkg/apperror"
	"sharecycle-be/internal/pkg/serverutils"
	"sharecycle-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ILocationController interface {
	RegisterRoutes(r fiber.Router)
	Geocode(ctx *fiber.Ctx) error
	Reverse(ctx *fiber.Ctx) error
}

type locationController struct {
	service service.IGeocodingService
}

func NewLocationController(service service.IGeocodingService) ILocationController {
	return &locationController{service: service}
}

func (c *locationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/location")
	h.Get("/geocode", c.Geocode)
	h.Get("/reverse", c.Reverse)
}

func (c *locationController) Geocode(ctx *fiber.Ctx) error {
	address := strings.TrimSpace(ctx.Query("address", ""))
	if address == "" {
		return apperror.Validation(apperror.ReasonInvalidPayload, "address parameter is required")
	}

	point, err := c.service.ForwardGeocode(ctx.UserContext(), address)
	if err != nil {
		return err
	}
	if point == nil {
		return apperror.NotFound(apperror.ReasonAddressNotFound, "address could not be located")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success geocode address", dto.GeocodeResponse{
		Address:   address,
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
	}))
}

func (c *locationController) Reverse(ctx *fiber.Ctx) error {
	lat, latErr := strconv.ParseFloat(ctx.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(ctx.Query("lon"), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return apperror.Validation(apperror.ReasonInvalidPayload, "lat and lon must be valid coordinates")
	}

	res, err := c.service.ReverseGeocode(ctx.UserContext(), lat, lon)
	if err != nil {
		return err
	}
	if res == nil {
		return apperror.NotFound(apperror.ReasonAddressNotFound, "no address at these coordinates")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reverse geocode", res))
}
