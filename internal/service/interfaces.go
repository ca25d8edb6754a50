package service

import (
	"context"

	"keyword-pivot/pkg/pivot"
)

// QueryService is the pure query interface handed to the rendering layer.
type QueryService interface {
	ApplyFilter(ctx context.Context, state pivot.FilterState) (*pivot.FilterResult, error)
	GetPage(ctx context.Context, state pivot.FilterState, req pivot.PageRequest) (*pivot.Page, error)
}

// SessionService hands out per-operator sessions.
type SessionService interface {
	Get(id string) *Session
	Lookup(id string) (*Session, bool)
	Drop(id string) bool
	Count() int
	Close() error
}

var _ QueryService = (*pivot.Engine)(nil)
