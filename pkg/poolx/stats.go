package poolx

import (
	"time"

	"github.com/jackc/puddle/v2"
)

// Stats is a snapshot of a Pool.
type Stats struct {
	MaxSize              int32         `json:"max_size"`
	Total                int32         `json:"total"`
	Idle                 int32         `json:"idle"`
	Acquired             int32         `json:"acquired"`
	Constructing         int32         `json:"constructing"`
	AcquireCount         int64         `json:"acquire_count"`
	EmptyAcquireCount    int64         `json:"empty_acquire_count"`
	CanceledAcquireCount int64         `json:"canceled_acquire_count"`
	AcquireDuration      time.Duration `json:"acquire_duration"`
}

func newStats(s *puddle.Stat) Stats {
	return Stats{
		MaxSize:              s.MaxResources(),
		Total:                s.TotalResources(),
		Idle:                 s.IdleResources(),
		Acquired:             s.AcquiredResources(),
		Constructing:         s.ConstructingResources(),
		AcquireCount:         s.AcquireCount(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
		AcquireDuration:      s.AcquireDuration(),
	}
}
