package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Well-known slot keys for the persisted session.
const (
	SlotUser  = "user"
	SlotToken = "token"
)

// Slot is one stored key/value pair.
type Slot struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// SlotRepository persists string values under string keys in the slots table.
type SlotRepository struct {
	db *sql.DB
}

// NewSlotRepository creates a new [SlotRepository] with the given database connection
func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// Get returns the value stored under key. The bool is false when the slot is empty.
func (r *SlotRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM slots WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query slot %s: %w", key, err)
	}
	return value, true, nil
}

// PutAll writes every pair in values in one transaction, replacing existing slots.
func (r *SlotRepository) PutAll(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("slot key must not be empty")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	for _, k := range keys {
		if _, err := tx.Exec(query, k, values[k], now); err != nil {
			return fmt.Errorf("failed to write slot %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit slot transaction: %w", err)
	}
	return nil
}

// Delete removes the given slots in one transaction. Missing slots are not an error.
func (r *SlotRepository) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.Exec("DELETE FROM slots WHERE key = ?", k); err != nil {
			return fmt.Errorf("failed to delete slot %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit slot transaction: %w", err)
	}
	return nil
}

// List returns every stored slot ordered by key.
func (r *SlotRepository) List() ([]Slot, error) {
	rows, err := r.db.Query("SELECT key, value, updated_at FROM slots ORDER BY key ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return slots, nil
}
