// Package audit defines the audit trail contract for ledger state changes.
package audit

import (
	"context"

	"stockledger/internal/core/id"
)

// Action names the audited operation.
type Action string

const (
	ActionCreate     Action = "create"
	ActionTransition Action = "transition"
	ActionPost       Action = "post"
	ActionUpdate     Action = "update"
)

// Entry is one audited change.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Changes    map[string]any
}

// Recorder persists audit entries within the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }

// Memory keeps entries in memory. Tests only.
type Memory struct {
	Entries []Entry
}

// Record implements Recorder.
func (m *Memory) Record(_ context.Context, entry Entry) error {
	m.Entries = append(m.Entries, entry)
	return nil
}
