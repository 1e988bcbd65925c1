// Package storage reads and writes period models and persists solved transforms and
// drift frames.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/diachron/internal/align"
	"github.com/hyperjump/diachron/internal/drift"
)

// StoredFrame is a drift frame saved with the request that produced it.
type StoredFrame struct {
	ID        string       `json:"id"`
	Baseword  string       `json:"baseword"`
	Periods   []string     `json:"periods"`
	Neighbors int          `json:"neighbors"`
	Frame     *drift.Frame `json:"frame"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store persists transforms and drift frames.
type Store interface {
	align.TransformCache

	// Frame operations
	SaveFrame(ctx context.Context, frame *drift.Frame, periods []string, neighbors int) (*StoredFrame, error)
	GetFrame(ctx context.Context, id string) (*StoredFrame, error)
	ListFrames(ctx context.Context, offset, limit int) ([]*StoredFrame, error)

	// Stats
	CountTransforms(ctx context.Context) (int64, error)
	CountFrames(ctx context.Context) (int64, error)

	Close() error
}
