// Package repositories implements SQLite persistence for the client's durable state.
//
// The client keeps very little on disk: the signed-in user record and its bearer token, each stored in a
// named slot of the slots table. [SlotRepository] reads and writes those slots; multi-slot writes and
// deletes run in a single transaction so a crash never leaves one slot without the other.
//
// Key Implementations:
//   - [SlotRepository] : key/value slots with transactional multi-key writes
package repositories
