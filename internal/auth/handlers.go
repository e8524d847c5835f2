package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/token", func(c *fiber.Ctx) error {
		var req TokenRequest
		if err := c.BodyParser(&req); err != nil || validate.Struct(req) != nil {
			return fiber.NewError(fiber.StatusBadRequest, "passphrase required")
		}
		resp, err := svc.IssueToken(req.Passphrase)
		if err != nil {
			switch {
			case errors.Is(err, ErrAuthDisabled):
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			case errors.Is(err, ErrInvalidCredentials):
				return fiber.NewError(fiber.StatusUnauthorized, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
		}
		return c.JSON(resp)
	})

	r.Get("/verify", func(c *fiber.Ctx) error {
		if !svc.Enabled() {
			return c.JSON(fiber.Map{"rider": riderSubject, "auth": "disabled"})
		}
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := svc.ValidateToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return c.JSON(fiber.Map{"rider": claims.Rider, "expires_at": claims.ExpiresAt.Time})
	})
}
