package refuel

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Input
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		refuel, err := svc.Add(c.Context(), req)
		if err != nil {
			if errors.Is(err, ErrInvalidRefuel) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(refuel)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		refuels, err := svc.List(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if refuels == nil {
			refuels = []Refuel{}
		}
		return c.JSON(refuels)
	})
}
