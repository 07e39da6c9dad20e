package synth

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/protoverge/protoverge/internal/generator/merge"
)

// Metrics tracks one synthesis run
type Metrics struct {
	Messages  int
	Funcs     int
	Workers   int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Run synthesizes every merged message on a bounded worker pool. Message
// synthesis is pure and independent per message, so workers share nothing;
// each writes its own result slot and the output keeps the merged schema's
// message order regardless of completion order. workers <= 0 means one per
// CPU.
func (s *Synthesizer) Run(ctx context.Context, merged *merge.MergedSchema, workers int) ([]*Artifact, *Metrics, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	metrics := &Metrics{
		Messages:  len(merged.Messages),
		Workers:   workers,
		StartTime: time.Now(),
	}

	artifacts := make([]*Artifact, len(merged.Messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range merged.Messages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			art, err := s.Message(m)
			if err != nil {
				return err
			}
			artifacts[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for _, art := range artifacts {
		metrics.Funcs += len(art.Funcs)
	}
	metrics.EndTime = time.Now()
	metrics.Duration = metrics.EndTime.Sub(metrics.StartTime)

	s.log.Infow("synthesis complete",
		"messages", metrics.Messages,
		"funcs", metrics.Funcs,
		"workers", metrics.Workers,
		"duration", metrics.Duration,
	)
	return artifacts, metrics, nil
}
