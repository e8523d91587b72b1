// Package server exposes the HTTP API over the orchestrator and the store.
package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"eventcast/internal/errorutil"
	"eventcast/internal/explain"
	"eventcast/internal/forecast"
	"eventcast/internal/logger"
	"eventcast/internal/orchestrate"
	"eventcast/internal/store"
)

var validate = validator.New()

// Server owns the Fiber app and its dependencies.
type Server struct {
	app   *fiber.App
	orch  *orchestrate.Orchestrator
	store *store.Store
}

// New builds the app with all routes registered.
func New(orch *orchestrate.Orchestrator, st *store.Store) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "eventcast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	s := &Server{app: app, orch: orch, store: st}
	s.registerRoutes()
	return s
}

// App returns the underlying Fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on the given address and blocks.
func (s *Server) Listen(addr string) error {
	logger.Info("HTTP server listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "eventcast",
		})
	})

	api := s.app.Group("/api")

	weather := api.Group("/weather")
	weather.Get("/explain", s.handleExplain)
	weather.Get("/point", s.handlePoint)
	weather.Post("/reset", s.handleReset)

	events := api.Group("/events")
	events.Get("/", s.handleListEvents)
	events.Post("/", s.handleCreateEvent)
	events.Get("/:id", s.handleGetEvent)
	events.Put("/:id", s.handleUpdateEvent)
	events.Delete("/:id", s.handleDeleteEvent)

	settings := api.Group("/settings")
	settings.Get("/", s.handleGetSettings)
	settings.Put("/", s.handleSaveSettings)
}

// handleExplain serves the main question: what will the weather be like, and
// how does it compare to what the user wants.
func (s *Server) handleExplain(c *fiber.Ctx) error {
	location := c.Query("location")
	dateStr := c.Query("date")

	if location == "" || dateStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing location or date"})
	}

	date, vErr := errorutil.ValidateISODate("date", dateStr)
	if vErr != nil {
		return fiber.NewError(fiber.StatusBadRequest, vErr.Message)
	}

	// Desired conditions only count when the full set arrives.
	var desired *explain.DesiredConditions
	desiredTemp := c.Query("desiredTemp")
	desiredCondition := c.Query("desiredCondition")
	desiredHumidity := c.Query("desiredHumidity")
	if desiredTemp != "" && desiredCondition != "" && desiredHumidity != "" {
		var req desiredQuery
		req.Temperature = desiredTemp
		req.Humidity = desiredHumidity
		parsed, err := req.parse(desiredCondition)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		desired = parsed
	}

	outcome, err := s.orch.LookupByName(c.Context(), location, date, desired)
	if err != nil {
		return s.lookupError(c, err)
	}

	if !outcome.Summary.OK() {
		return c.Status(fiber.StatusInternalServerError).JSON(outcome.Summary)
	}

	return c.JSON(outcome.Explanation)
}

// desiredQuery validates the optional preference parameters.
type desiredQuery struct {
	Temperature string `validate:"required,numeric"`
	Humidity    string `validate:"required,numeric"`
}

func (q *desiredQuery) parse(condition string) (*explain.DesiredConditions, error) {
	if err := validate.Struct(q); err != nil {
		return nil, errors.New("desiredTemp and desiredHumidity must be numeric")
	}
	temp, _ := strconv.ParseFloat(q.Temperature, 64)
	humidity, _ := strconv.ParseFloat(q.Humidity, 64)
	return &explain.DesiredConditions{
		Temperature: temp,
		Condition:   condition,
		Humidity:    humidity,
	}, nil
}

// pointQuery binds and validates map-tap coordinates.
type pointQuery struct {
	Latitude  float64 `validate:"min=-90,max=90"`
	Longitude float64 `validate:"min=-180,max=180"`
}

// handlePoint serves map taps: coordinates in, full summary out.
func (s *Server) handlePoint(c *fiber.Ctx) error {
	lat := c.QueryFloat("lat", 200)
	lon := c.QueryFloat("lon", 200)
	if lat == 200 || lon == 200 {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lon query parameters are required")
	}

	q := pointQuery{Latitude: lat, Longitude: lon}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "coordinates out of range")
	}

	dateStr := c.Query("date", time.Now().Format("2006-01-02"))
	date, vErr := errorutil.ValidateISODate("date", dateStr)
	if vErr != nil {
		return fiber.NewError(fiber.StatusBadRequest, vErr.Message)
	}

	outcome, err := s.orch.Lookup(c.Context(), forecast.Coordinates{Latitude: lat, Longitude: lon}, date, nil)
	if err != nil {
		return s.lookupError(c, err)
	}

	return c.JSON(fiber.Map{
		"summary":     outcome.Summary,
		"explanation": outcome.Explanation,
		"fromCache":   outcome.FromCache,
	})
}

// handleReset mirrors the client returning to the foreground: rate limiter
// and cache start fresh.
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.orch.Reset()
	return c.JSON(fiber.Map{"status": "reset"})
}

func (s *Server) handleListEvents(c *fiber.Ctx) error {
	events, err := s.store.ListEvents()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list events")
	}
	return c.JSON(fiber.Map{"events": events})
}

func (s *Server) handleCreateEvent(c *fiber.Ctx) error {
	var event store.Event
	if err := c.BodyParser(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed event payload")
	}

	created, err := s.store.CreateEvent(event)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) handleGetEvent(c *fiber.Ctx) error {
	event, err := s.store.GetEvent(c.Params("id"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(event)
}

func (s *Server) handleUpdateEvent(c *fiber.Ctx) error {
	var event store.Event
	if err := c.BodyParser(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed event payload")
	}

	updated, err := s.store.UpdateEvent(c.Params("id"), event)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(updated)
}

func (s *Server) handleDeleteEvent(c *fiber.Ctx) error {
	if err := s.store.DeleteEvent(c.Params("id")); err != nil {
		return s.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	settings, err := s.store.GetSettings()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load settings")
	}
	return c.JSON(settings)
}

func (s *Server) handleSaveSettings(c *fiber.Ctx) error {
	var settings store.Settings
	if err := c.BodyParser(&settings); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed settings payload")
	}

	if err := s.store.SaveSettings(settings); err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(settings)
}

// lookupError maps orchestration failures to HTTP statuses. Admission
// denials are client-pacing hints, not server faults.
func (s *Server) lookupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, orchestrate.ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, orchestrate.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, orchestrate.ErrShuttingDown):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}

	var geoErr *errorutil.GeocodingError
	if errors.As(err, &geoErr) {
		return fiber.NewError(fiber.StatusBadRequest, geoErr.Error())
	}

	logger.Error("Weather lookup failed: %v", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
}

// storeError maps store failures to HTTP statuses.
func (s *Server) storeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	var vErrs *errorutil.ValidationErrors
	if errors.As(err, &vErrs) {
		return fiber.NewError(fiber.StatusBadRequest, vErrs.Error())
	}
	logger.Error("Store operation failed: %v", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
}
