package settings

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/mileage", func(c *fiber.Ctx) error {
		v, err := svc.Mileage(c.Context())
		if err != nil {
			if errors.Is(err, ErrInvalidMileage) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(MileageInput{KmPerLitre: v})
	})

	r.Put("/mileage", authMiddleware, func(c *fiber.Ctx) error {
		var req MileageInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := svc.SetMileage(c.Context(), req.KmPerLitre); err != nil {
			if errors.Is(err, ErrInvalidMileage) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(req)
	})
}
