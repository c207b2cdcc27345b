package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ReadRows Phase = iota
	ApplyFavorites
	Finished
)

func (p Phase) String() string {
	switch p {
	case ReadRows:
		return "read_rows"
	case ApplyFavorites:
		return "apply_favorites"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func readRowsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadRows,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Loaded %d favorite rows", total),
	}
}

func rowAppliedUpdate(step, total int, res FavoriteRowResult) ProgressUpdate {
	state := "not a favorite"
	if res.Status.IsFavorite {
		state = "favorite"
	}
	return ProgressUpdate{
		Phase:   ApplyFavorites,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s %s (%s)", step, total, res.Row.Intent, res.Row.MovieID, state),
		Data:    res,
	}
}

func rowFailedUpdate(step, total int, res FavoriteRowResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyFavorites,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s %s: %v", step, total, res.Row.Intent, res.Row.MovieID, res.Error),
		Data:    res,
	}
}

func finishedUpdate(result *BulkFavoritesResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Step:    result.Applied + result.Failed,
		Total:   result.Total,
		Message: fmt.Sprintf("Applied %d, failed %d, skipped %d", result.Applied, result.Failed, result.Skipped),
		Data:    result,
	}
}
