package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"keyword-pivot/internal/service"
	"keyword-pivot/pkg/logger"
	"keyword-pivot/pkg/metrics"
	"keyword-pivot/pkg/pivot"
)

// QueryLimits bounds page sizes accepted over HTTP.
type QueryLimits struct {
	DefaultPageSize int
	MaxPageSize     int
	Timeout         time.Duration
}

// Controller serves the query API over one engine.
type Controller struct {
	engine   *pivot.Engine
	sessions service.SessionService
	recorder *metrics.Recorder
	limits   QueryLimits
	log      *logger.Logger
}

// QueryRequest is the stateless query body: a full Filter State plus
// page parameters.
type QueryRequest struct {
	Filter pivot.FilterState `json:"filter"`
	pivot.PageRequest
}

type QueryResponse struct {
	Result *pivot.FilterResult `json:"result"`
	Page   *pivot.Page         `json:"page"`
}

type StatusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Records   int    `json:"records"`
	Issues    int    `json:"issues"`
	Sessions  int    `json:"sessions"`
}

type IssuesResponse struct {
	Total  int                     `json:"total"`
	Counts map[pivot.IssueKind]int `json:"counts"`
	Issues []pivot.Issue           `json:"issues"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewController(engine *pivot.Engine, sessions service.SessionService, recorder *metrics.Recorder, limits QueryLimits) *Controller {
	if limits.DefaultPageSize <= 0 {
		limits.DefaultPageSize = 50
	}
	if limits.MaxPageSize < limits.DefaultPageSize {
		limits.MaxPageSize = limits.DefaultPageSize
	}
	return &Controller{
		engine:   engine,
		sessions: sessions,
		recorder: recorder,
		limits:   limits,
		log:      logger.GetLogger().WithField("component", "controller"),
	}
}

func (ctl *Controller) Health(c *fiber.Ctx) error {
	store := ctl.engine.Store()
	return c.JSON(StatusResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Records:   store.Len(),
		Issues:    len(store.Issues()),
		Sessions:  ctl.sessions.Count(),
	})
}

func (ctl *Controller) Vocabulary(c *fiber.Ctx) error {
	return c.JSON(ctl.engine.Store().Vocabulary())
}

func (ctl *Controller) Issues(c *fiber.Ctx) error {
	store := ctl.engine.Store()
	issues := store.Issues()
	total := len(issues)

	if kind := strings.TrimSpace(c.Query("kind")); kind != "" {
		filtered := issues[:0:0]
		for _, is := range issues {
			if string(is.Kind) == kind {
				filtered = append(filtered, is)
			}
		}
		issues = filtered
	}
	if limit := c.QueryInt("limit", 100); limit >= 0 && limit < len(issues) {
		issues = issues[:limit]
	}

	return c.JSON(IssuesResponse{Total: total, Counts: store.IssueCounts(), Issues: issues})
}

// Query filters once, then aggregates and pages the same visible subset.
func (ctl *Controller) Query(c *fiber.Ctx) error {
	var req QueryRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	req.PageRequest = ctl.normalizePage(req.PageRequest)

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	visible, result, err := ctl.engine.Recompute(ctx, req.Filter)
	if err != nil {
		return ctl.queryError(err)
	}
	page, err := ctl.engine.Page(ctx, visible, req.PageRequest)
	if err != nil {
		return ctl.queryError(err)
	}
	return c.JSON(QueryResponse{Result: result, Page: page})
}

// ApplySessionFilter replaces a session's Filter State, creating the
// session on first use.
func (ctl *Controller) ApplySessionFilter(c *fiber.Ctx) error {
	var state pivot.FilterState
	if err := decodeBody(c, &state); err != nil {
		return err
	}

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	session := ctl.sessions.Get(c.Params("id"))
	ctl.reportSessions()

	result, err := session.Apply(ctx, state)
	if err != nil {
		return ctl.queryError(err)
	}
	return c.JSON(result)
}

func (ctl *Controller) SessionPage(c *fiber.Ctx) error {
	session, ok := ctl.sessions.Lookup(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	sortKey, err := pivot.ParseSortKey(c.Query("sort"))
	if err != nil {
		return ctl.queryError(err)
	}
	dir, err := pivot.ParseDirection(c.Query("direction"))
	if err != nil {
		return ctl.queryError(err)
	}
	req := ctl.normalizePage(pivot.PageRequest{
		SortKey:   sortKey,
		Direction: dir,
		PageIndex: c.QueryInt("page", 0),
		PageSize:  c.QueryInt("page_size", 0),
	})

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	page, err := session.Page(ctx, req)
	if err != nil {
		return ctl.queryError(err)
	}
	return c.JSON(page)
}

func (ctl *Controller) DeleteSession(c *fiber.Ctx) error {
	if !ctl.sessions.Drop(c.Params("id")) {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	ctl.reportSessions()
	return c.SendStatus(fiber.StatusNoContent)
}

// normalizePage fills the default page size and clamps to the maximum.
// Negative sizes pass through so the engine can reject them.
func (ctl *Controller) normalizePage(req pivot.PageRequest) pivot.PageRequest {
	if req.PageSize == 0 {
		req.PageSize = ctl.limits.DefaultPageSize
	}
	if req.PageSize > ctl.limits.MaxPageSize {
		req.PageSize = ctl.limits.MaxPageSize
	}
	return req
}

func (ctl *Controller) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if ctl.limits.Timeout > 0 {
		return context.WithTimeout(c.UserContext(), ctl.limits.Timeout)
	}
	return context.WithCancel(c.UserContext())
}

func (ctl *Controller) reportSessions() {
	if ctl.recorder != nil {
		ctl.recorder.SetSessions(ctl.sessions.Count())
	}
}

// queryError maps engine errors to HTTP errors. Contract violations are the
// caller's fault.
func (ctl *Controller) queryError(err error) error {
	switch {
	case errors.Is(err, pivot.ErrInvalidRange),
		errors.Is(err, pivot.ErrInvalidPageSize),
		errors.Is(err, pivot.ErrInvalidPageIndex),
		errors.Is(err, pivot.ErrUnknownSortKey),
		errors.Is(err, pivot.ErrUnknownDirection):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, "query timed out")
	case errors.Is(err, context.Canceled):
		return fiber.NewError(fiber.StatusServiceUnavailable, "query cancelled")
	}
	ctl.log.WithError(err).Error("Query failed")
	return err
}

func decodeBody(c *fiber.Ctx, v interface{}) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
