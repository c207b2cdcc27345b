package tasks

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/myflix/internal/favorites"
	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/shared"
)

// FavoriteRow is one requested favorite change.
type FavoriteRow struct {
	Line    int
	MovieID string
	Comment string
	Intent  favorites.Intent
}

// FavoriteRowResult is the outcome of one row.
type FavoriteRowResult struct {
	Row    FavoriteRow
	Status favorites.Status
	Error  error
}

// BulkFavoritesResult summarizes a bulk run. Results are in completion order.
type BulkFavoritesResult struct {
	Total   int
	Applied int
	Failed  int
	Skipped int
	Results []FavoriteRowResult
}

// BulkFavoritesOpts contains configuration for bulk favorite changes.
type BulkFavoritesOpts struct {
	NumWorkers int     // Concurrent workers (default: 3, max: 10)
	RateLimit  float64 // Requests per second (default: 5)
}

// FavoriteApplier applies one favorite intent. [favorites.Reconciler] implements it.
type FavoriteApplier interface {
	Apply(ctx context.Context, intent favorites.Intent, movieID any, comment string) (favorites.Status, error)
}

// ReadFavoriteRows parses CSV with the columns movie_id, comment and intent.
//
// The header row is optional. comment and intent may be omitted; intent defaults to add.
func ReadFavoriteRows(r io.Reader) ([]FavoriteRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV: %v", shared.ErrInvalidInput, err)
	}

	var rows []FavoriteRow
	for i, record := range records {
		line := i + 1
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "movie_id") {
			continue
		}

		row := FavoriteRow{Line: line, MovieID: strings.TrimSpace(record[0]), Intent: favorites.IntentAdd}
		if row.MovieID == "" {
			return nil, fmt.Errorf("%w: line %d: movie_id is required", shared.ErrInvalidInput, line)
		}
		if len(record) > 1 {
			row.Comment = strings.TrimSpace(record[1])
		}
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			intent, err := favorites.ParseIntent(strings.ToLower(strings.TrimSpace(record[2])))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			row.Intent = intent
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// BulkFavorites applies rows through applier with a worker pool, rate limiting and progress tracking.
//
// Row failures are collected in the result. When the session ends the run stops and the returned error
// wraps shared.ErrSessionEnded (or shared.ErrUnauthenticated when there was no session to begin with).
func BulkFavorites(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	applier FavoriteApplier,
	rows []FavoriteRow,
	opts BulkFavoritesOpts,
) (*BulkFavoritesResult, error) {
	if applier == nil {
		return nil, fmt.Errorf("%w: no favorite applier", shared.ErrInvalidInput)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &BulkFavoritesResult{Total: len(rows), Results: make([]FavoriteRowResult, 0, len(rows))}
	sendProgress(prog, readRowsUpdate(len(rows)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	queues := make([]chan FavoriteRow, opts.NumWorkers)
	results := make(chan FavoriteRowResult, len(rows))

	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan FavoriteRow, len(rows))
		wg.Add(1)
		go favoriteWorker(ctx, &wg, limiter, applier, queues[i], results)
	}

	for _, row := range rows {
		queues[workerFor(row.MovieID, len(queues))] <- row
	}
	for _, q := range queues {
		close(q)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var stopErr error
	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Error == nil {
			result.Applied++
			sendProgress(prog, rowAppliedUpdate(completed, len(rows), res))
			continue
		}

		result.Failed++
		sendProgress(prog, rowFailedUpdate(completed, len(rows), res))

		if stopErr == nil && endsRun(res.Error) {
			stopErr = res.Error
			cancel()
		}
	}

	result.Skipped = result.Total - result.Applied - result.Failed
	sendProgress(prog, finishedUpdate(result))

	if stopErr != nil {
		return result, fmt.Errorf("bulk favorites stopped: %w", stopErr)
	}
	if err := ctx.Err(); err != nil && result.Skipped > 0 {
		return result, fmt.Errorf("bulk favorites interrupted: %w", err)
	}
	return result, nil
}

// favoriteWorker applies rows from its queue until the queue closes or ctx is cancelled.
func favoriteWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	applier FavoriteApplier,
	rows <-chan FavoriteRow,
	results chan<- FavoriteRowResult,
) {
	defer wg.Done()

	for row := range rows {
		if ctx.Err() != nil {
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		status, err := applier.Apply(ctx, row.Intent, row.MovieID, row.Comment)
		results <- FavoriteRowResult{Row: row, Status: status, Error: err}
		if endsRun(err) {
			return
		}
	}
}

// endsRun reports whether err means there is no session left to apply rows to.
func endsRun(err error) bool {
	return errors.Is(err, shared.ErrSessionEnded) || errors.Is(err, shared.ErrUnauthenticated)
}

// workerFor picks the worker for a movie so that rows for one movie stay in order.
func workerFor(movieID string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(models.CanonicalID(movieID)))
	return int(h.Sum32() % uint32(n))
}
