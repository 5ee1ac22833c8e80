package blockpipe

import (
	"context"
	"errors"
)

var (
	ErrCycleDetected  = errors.New("blockpipe: cycle detected, graph is not acyclic")
	ErrGraphNotFound  = errors.New("blockpipe: graph not found")
	ErrUnknownRef     = errors.New("blockpipe: unknown node ref")
	ErrBlockNotFound  = errors.New("blockpipe: block not found")
	ErrSocketNotFound = errors.New("blockpipe: socket not found")
	ErrNotStage       = errors.New("blockpipe: block is not a stage")
	ErrNotArgument    = errors.New("blockpipe: block is not an argument")
	ErrChainOccupied  = errors.New("blockpipe: chain link already in use")
	ErrChainForbidden = errors.New("blockpipe: stage does not accept this chain link")
	ErrUnknownStage   = errors.New("blockpipe: unknown stage")
	ErrNotDraggable   = errors.New("blockpipe: preview markers cannot be dragged")
)

// Store defines the contract for persisting and retrieving workspace graphs.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// SaveGraph replaces the stored graph with g. Refs are resolved and
	// cycles rejected before anything is written.
	SaveGraph(ctx context.Context, g *Graph) (*Graph, error)
	// GetGraph returns nil, nil when the graph does not exist.
	GetGraph(ctx context.Context, graphID string) (*Graph, error)
	// DeleteGraph is a no-op for unknown ids.
	DeleteGraph(ctx context.Context, graphID string) error
	ListGraphs(ctx context.Context) ([]string, error)
}
