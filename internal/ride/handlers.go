package ride

import (
	"context"
	"errors"

	"backend-bikecomp/internal/source"
	"backend-bikecomp/internal/telemetry"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type SampleRequest struct {
	Latitude  float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64  `json:"longitude" validate:"gte=-180,lte=180"`
	Accuracy  float64  `json:"accuracy" validate:"gte=0"`
	Timestamp int64    `json:"timestamp" validate:"gte=0"`
	Speed     *float64 `json:"speed" validate:"omitempty,gte=0"`
}

func (r SampleRequest) Sample() telemetry.PositionSample {
	return telemetry.PositionSample{
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Accuracy:       r.Accuracy,
		TimestampMs:    r.Timestamp,
		DeviceSpeedMps: r.Speed,
	}
}

type FailureRequest struct {
	Code    int    `json:"code" validate:"min=1,max=3"`
	Message string `json:"message"`
}

type PermissionRequest struct {
	State string `json:"state" validate:"required"`
}

type Lister interface {
	Rides(ctx context.Context) ([]Ride, error)
}

func RegisterSessionRoutes(r fiber.Router, m *Manager, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		update, err := m.Start()
		if err != nil {
			return sessionError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(update)
	})

	r.Get("/current", func(c *fiber.Ctx) error {
		update, ok := m.Current()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, ErrNotRiding.Error())
		}
		return c.JSON(update)
	})

	r.Put("/permission", authMiddleware, func(c *fiber.Ctx) error {
		var req PermissionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		perm, err := source.ParsePermission(req.State)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		m.SetPermission(perm)
		return c.JSON(fiber.Map{"permission": perm})
	})

	r.Post("/:id/samples", authMiddleware, func(c *fiber.Ctx) error {
		var req SampleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := m.Ingest(c.Context(), c.Params("id"), req.Sample()); err != nil {
			return sessionError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/:id/errors", authMiddleware, func(c *fiber.Ctx) error {
		var req FailureRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		failure := &source.Failure{Code: req.Code, Message: req.Message}
		if err := m.ReportError(c.Context(), c.Params("id"), failure); err != nil {
			return sessionError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		result, err := m.Stop(c.Context(), c.Params("id"))
		if err != nil {
			return sessionError(err)
		}
		return c.JSON(result)
	})
}

func RegisterHistoryRoutes(r fiber.Router, rides Lister) {
	r.Get("/", func(c *fiber.Ctx) error {
		list, err := rides.Rides(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if list == nil {
			list = []Ride{}
		}
		return c.JSON(list)
	})
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyRiding), errors.Is(err, ErrNotRiding):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, telemetry.ErrInvalidSample):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, source.ErrPermissionDenied):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, source.ErrSourceUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
