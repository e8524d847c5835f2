package server

import (
	"context"

	"backend-bikecomp/internal/auth"
	"backend-bikecomp/internal/config"
	"backend-bikecomp/internal/fuel"
	"backend-bikecomp/internal/refuel"
	"backend-bikecomp/internal/ride"
	"backend-bikecomp/internal/settings"
	"backend-bikecomp/internal/source"
	"backend-bikecomp/internal/store"
	"backend-bikecomp/internal/stream"
	"backend-bikecomp/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

// pushBuffer bounds how many device samples may queue ahead of the session loop.
const pushBuffer = 32

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	Store    store.Store
	Redis    *redis.Client
	Stream   *stream.Hub
	Auth     *auth.Service
	Settings *settings.Service
	Rides    *ride.Manager
}

func NewServer(cfg config.Config, st store.Store, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:      app,
		Cfg:      cfg,
		Store:    st,
		Redis:    redisClient,
		Stream:   stream.NewHub(redisClient),
		Auth:     auth.NewService(cfg.JWTSecret, cfg.PassphraseHash, cfg.TokenTTL),
		Settings: settings.NewService(st, cfg.DefaultMileage),
	}
	s.Rides = ride.NewManager(source.NewPush(pushBuffer), st, s.Settings.Mileage, s.Stream, ride.Options{
		Accumulator: AccumulatorConfig(cfg),
	})

	registerRoutes(s)
	return s
}

// AccumulatorConfig maps the speed filter settings onto the trip accumulator.
// Non-positive noise values fall back to the filter defaults.
func AccumulatorConfig(cfg config.Config) telemetry.AccumulatorConfig {
	params := telemetry.DefaultFilterParams()
	if cfg.SpeedFilterR > 0 && cfg.SpeedFilterQ > 0 {
		params = telemetry.NewFilterParams(cfg.SpeedFilterR, cfg.SpeedFilterQ)
	}
	return telemetry.AccumulatorConfig{
		Filter:             params,
		CountStaleDistance: cfg.CountStaleDistance,
	}
}

// Close stops a ride that is still running, which persists it, and then
// releases the live stream.
func (s *Server) Close(ctx context.Context) error {
	err := s.Rides.Close(ctx)
	s.Stream.Close()
	return err
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Auth)

	auth.RegisterRoutes(s.App.Group("/auth"), s.Auth)
	ride.RegisterSessionRoutes(s.App.Group("/sessions"), s.Rides, jwtMiddleware)
	ride.RegisterHistoryRoutes(s.App.Group("/rides"), s.Store)
	refuel.RegisterRoutes(s.App.Group("/refuels"), refuel.NewService(s.Store), jwtMiddleware)
	settings.RegisterRoutes(s.App.Group("/settings"), s.Settings, jwtMiddleware)
	fuel.RegisterRoutes(s.App.Group("/fuel"), fuel.NewService(s.Store, s.Settings))
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)

	s.App.Delete("/history", jwtMiddleware, func(c *fiber.Ctx) error {
		if _, riding := s.Rides.Current(); riding {
			return fiber.NewError(fiber.StatusConflict, ride.ErrAlreadyRiding.Error())
		}
		if err := s.Store.Clear(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
