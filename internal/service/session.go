package service

import (
	"context"
	"fmt"
	"sync"

	"keyword-pivot/pkg/logger"
	"keyword-pivot/pkg/pivot"
)

// snapshot pairs a Filter State with the visible subset derived from it.
// Both are replaced together, never patched.
type snapshot struct {
	state   pivot.FilterState
	visible pivot.Subset
	result  *pivot.FilterResult
}

// Session is one operator's view of the shared store. Filter State is the
// only mutable thing it holds.
type Session struct {
	id     string
	engine *pivot.Engine

	mu      sync.Mutex
	current *snapshot
	log     *logger.Logger
}

// NewSession starts at the default state: all brands, no restriction.
func NewSession(id string, engine *pivot.Engine) *Session {
	s := &Session{
		id:     id,
		engine: engine,
		log:    logger.GetLogger().WithFields(map[string]interface{}{"component": "session", "session_id": id}),
	}
	all := engine.Store().All()
	s.current = &snapshot{
		state:   pivot.DefaultFilterState(),
		visible: all,
		result:  engine.Summarize(all, pivot.DefaultFilterState()),
	}
	return s
}

func (s *Session) ID() string { return s.id }

// State returns a copy of the current Filter State.
func (s *Session) State() pivot.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.state.Clone()
}

// Result returns the aggregates of the current state.
func (s *Session) Result() *pivot.FilterResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.result
}

// Apply replaces the Filter State and runs the full recompute. On error the
// previous state stays in effect.
func (s *Session) Apply(ctx context.Context, state pivot.FilterState) (*pivot.FilterResult, error) {
	state = state.Clone()

	visible, result, err := s.engine.Recompute(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to apply filter: %w", err)
	}

	s.mu.Lock()
	s.current = &snapshot{state: state, visible: visible, result: result}
	s.mu.Unlock()

	s.log.WithField("visible", result.VisibleCount).Debug("Filter state replaced")
	return result, nil
}

// Reset restores the default state.
func (s *Session) Reset(ctx context.Context) (*pivot.FilterResult, error) {
	return s.Apply(ctx, pivot.DefaultFilterState())
}

// Page sorts and slices the current visible subset.
func (s *Session) Page(ctx context.Context, req pivot.PageRequest) (*pivot.Page, error) {
	s.mu.Lock()
	visible := s.current.visible
	s.mu.Unlock()

	return s.engine.Page(ctx, visible, req)
}
