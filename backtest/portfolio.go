package backtest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/trendtrader/config"
)

// Portfolio runs several instruments side by side. Each instrument gets
// its own Runner; nothing mutable is shared between them except what the
// caller passes in Options.
type Portfolio struct {
	Config      config.Config
	Instruments []string

	// Open returns the bar feed for one instrument.
	Open func(instrument string) (BarFeed, error)

	// Options are applied to every Runner. Observers and journals given
	// here must be safe for concurrent use.
	Options []Option
}

// Run replays every instrument concurrently and returns the results in
// Instruments order. The first failure cancels the remaining runs.
func (p *Portfolio) Run(ctx context.Context) ([]Result, error) {
	if p.Open == nil {
		return nil, fmt.Errorf("portfolio: Open is required")
	}
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(p.Instruments))
	for _, inst := range p.Instruments {
		if inst == "" || seen[inst] {
			return nil, fmt.Errorf("portfolio: bad or duplicate instrument %q", inst)
		}
		seen[inst] = true
	}

	results := make([]Result, len(p.Instruments))
	g, ctx := errgroup.WithContext(ctx)

	for i, inst := range p.Instruments {
		i, inst := i, inst
		g.Go(func() error {
			feed, err := p.Open(inst)
			if err != nil {
				return fmt.Errorf("open %s: %w", inst, err)
			}
			r, err := NewRunner(inst, p.Config, feed, p.Options...)
			if err != nil {
				feed.Close()
				return err
			}
			res, err := r.Run(ctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
