package handler

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keyword-pivot/pkg/ratelimit"
)

// NewApp wires the routes. limiter may be nil to disable throttling.
func NewApp(ctl *Controller, limiter *ratelimit.Limiter) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "keyword-pivot",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(ctl.observeRequests)

	if ctl.recorder != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(ctl.recorder.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	if limiter != nil {
		api.Use(ctl.rateLimit(limiter))
	}
	api.Get("/health", ctl.Health)
	api.Get("/vocabulary", ctl.Vocabulary)
	api.Get("/issues", ctl.Issues)
	api.Post("/query", ctl.Query)
	api.Post("/sessions/:id/filter", ctl.ApplySessionFilter)
	api.Get("/sessions/:id/page", ctl.SessionPage)
	api.Delete("/sessions/:id", ctl.DeleteSession)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(errorResponse{Error: message})
}

// observeRequests logs and counts every request once its status is final.
func (ctl *Controller) observeRequests(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	route := c.Route().Path
	if ctl.recorder != nil {
		ctl.recorder.ObserveRequest(route, status)
	}
	ctl.log.WithFields(map[string]interface{}{
		"method":      c.Method(),
		"route":       route,
		"status":      status,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Request served")
	return nil
}

func (ctl *Controller) rateLimit(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := limiter.Allow(c.IP())
		if err != nil {
			ctl.log.WithError(err).Warn("Rate limiter unavailable, allowing request")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			if ctl.recorder != nil {
				ctl.recorder.ObserveThrottled()
			}
			retry := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
