package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotmix/internal/shared"
)

// Strategy is one named way of producing candidate track URIs.
type Strategy struct {
	Name string

	// Enabled gates the strategy on earlier outcomes. nil means always run.
	Enabled func() bool

	Fetch func(ctx context.Context) ([]string, error)
}

// Chain is an ordered list of strategies tried until one yields tracks.
type Chain []Strategy

// ChainResult is the output of the first strategy that produced tracks.
type ChainResult struct {
	URIs     []string
	Strategy string
}

// Run executes strategies in order. Errors and empty results move on to the next strategy;
// the first non-empty result wins and is truncated to limit.
//
// onStep is called before each strategy that runs. Exhaustion returns [shared.ErrNoTracks].
func (c Chain) Run(ctx context.Context, logger *log.Logger, limit int, onStep func(i int, s Strategy)) (*ChainResult, error) {
	for i, s := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.Enabled != nil && !s.Enabled() {
			logger.Debug("strategy skipped", "strategy", s.Name)
			continue
		}
		if onStep != nil {
			onStep(i, s)
		}

		uris, err := s.Fetch(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("strategy failed", "strategy", s.Name, "error", err)
			continue
		}

		uris = slices.DeleteFunc(uris, func(u string) bool { return u == "" })
		if len(uris) == 0 {
			logger.Info("strategy returned no tracks", "strategy", s.Name)
			continue
		}

		if limit > 0 && len(uris) > limit {
			uris = uris[:limit]
		}
		logger.Debug("strategy succeeded", "strategy", s.Name, "tracks", len(uris))
		return &ChainResult{URIs: uris, Strategy: s.Name}, nil
	}

	return nil, fmt.Errorf("%w: all %d strategies exhausted", shared.ErrNoTracks, len(c))
}
