package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/spotmix/internal/formatter"
	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/shared"
	"golang.org/x/time/rate"
)

// BatchOpts contains configuration for batch generation.
type BatchOpts struct {
	NumWorkers   int     // Concurrent generations (default: 2, max: 4)
	RateLimit    float64 // Generations started per second (default: 1)
	ManifestPath string  // Optional JSON manifest of the results
}

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Index   int
	Request Request
	Result  *Result
	Error   error
}

// BatchResult contains every item of a batch in request order.
type BatchResult struct {
	Total        int
	Succeeded    int
	Failed       int
	Items        []BatchItem
	ManifestPath string
}

type batchJob struct {
	index   int
	request Request
}

// BatchGenerate runs several independent generations with a bounded worker pool.
//
// Each request is a separate generation and yields its own playlist. Failures are collected per item and do not
// stop the batch. Starts are rate limited on top of the client's own request limiter.
func (e *PlaylistEngine) BatchGenerate(ctx context.Context, prog chan<- ProgressUpdate, reqs []Request, opts BatchOpts) (*BatchResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: Spotify client not initialized", shared.ErrServiceUnavailable)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no generation requests", shared.ErrMissingArgument)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 4 {
		opts.NumWorkers = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan batchJob, len(reqs))
	results := make(chan BatchItem, len(reqs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.batchWorker(ctx, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for i, req := range reqs {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- batchJob{index: i, request: req}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	batch := &BatchResult{Total: len(reqs), Items: make([]BatchItem, len(reqs))}
	seen := make([]bool, len(reqs))
	completed := 0
	for item := range results {
		completed++
		batch.Items[item.Index] = item
		seen[item.Index] = true

		if item.Error == nil {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
		e.sendProgress(prog, batchItemUpdate(completed, len(reqs), item))
	}

	for i, ok := range seen {
		if !ok {
			batch.Items[i] = BatchItem{Index: i, Request: reqs[i], Error: skippedErr(ctx.Err())}
			batch.Failed++
		}
	}

	if opts.ManifestPath != "" {
		if err := formatter.WriteJSONFile(batch.Manifest(), opts.ManifestPath); err != nil {
			return batch, fmt.Errorf("batch completed but failed to write manifest: %w", err)
		}
		batch.ManifestPath = opts.ManifestPath
	}

	if err := ctx.Err(); err != nil {
		return batch, err
	}
	return batch, nil
}

func (e *PlaylistEngine) batchWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan batchJob, results chan<- BatchItem) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := e.Generate(ctx, job.request, nil)
		results <- BatchItem{Index: job.index, Request: job.request, Result: res, Error: err}
	}
}

func skippedErr(err error) error {
	if err == nil {
		return fmt.Errorf("%w: generation did not run", shared.ErrServiceUnavailable)
	}
	return err
}

func batchItemUpdate(step, total int, item BatchItem) ProgressUpdate {
	label := describeRequest(item.Request)
	msg := fmt.Sprintf("[%d/%d] ✓ %s", step, total, label)
	if item.Error != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, label, item.Error)
	} else if item.Result != nil && item.Result.Playlist != nil {
		msg = fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, item.Result.Playlist.Name, item.Result.Added)
	}
	return ProgressUpdate{Phase: AddTracks, Step: step, Total: total, Message: msg, Data: item}
}

func describeRequest(r Request) string {
	switch r.Mode {
	case models.ModePersonalized, models.ModeCatalogRandom:
		return fmt.Sprintf("%s %s", r.Mode, r.Genre)
	case models.ModeTopTracks:
		return fmt.Sprintf("%s %s", r.Mode, r.TimeRange)
	default:
		return r.Mode.String()
	}
}

// BatchManifestEntry is one line of a batch manifest.
type BatchManifestEntry struct {
	Mode         models.Mode `json:"mode"`
	Genre        string      `json:"genre,omitempty"`
	TimeRange    string      `json:"range,omitempty"`
	PlaylistID   string      `json:"playlistId,omitempty"`
	PlaylistName string      `json:"playlistName,omitempty"`
	Added        int         `json:"added"`
	Strategy     string      `json:"strategy,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// BatchManifest summarizes a batch for `generate batch --manifest`.
type BatchManifest struct {
	Total     int                  `json:"total"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Items     []BatchManifestEntry `json:"items"`
}

// Manifest summarizes the batch for JSON output.
func (b *BatchResult) Manifest() BatchManifest {
	m := BatchManifest{Total: b.Total, Succeeded: b.Succeeded, Failed: b.Failed, Items: make([]BatchManifestEntry, 0, len(b.Items))}
	for _, item := range b.Items {
		entry := BatchManifestEntry{Mode: item.Request.Mode, Genre: item.Request.Genre, TimeRange: item.Request.TimeRange}
		if item.Result != nil {
			entry.Added = item.Result.Added
			entry.Strategy = item.Result.Strategy
			if item.Result.Playlist != nil {
				entry.PlaylistID = item.Result.Playlist.ID
				entry.PlaylistName = item.Result.Playlist.Name
			}
		}
		if item.Error != nil {
			entry.Error = item.Error.Error()
		}
		m.Items = append(m.Items, entry)
	}
	return m
}
