// Package tasks runs long favorite operations with real-time progress reporting.
//
// # Bulk Favorites
//
// [BulkFavorites] applies a list of [FavoriteRow] intents (usually read from CSV with [ReadFavoriteRows])
// through the favorites reconciler:
//
//   - a pool of workers sends requests, paced by a shared rate limiter
//   - rows for the same movie always land on the same worker, so they run in file order and never trip
//     the reconciler's one-change-per-movie rule
//   - a row failure is recorded and the run continues
//   - an ended session stops the run; remaining rows are reported as not attempted
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Sends use select with default so a slow
// or absent reader never blocks the work.
package tasks
