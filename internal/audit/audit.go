// Package audit records data modifications confirmed by the data API.
//
// Only mutations the server acknowledged are recorded: an edit that fails
// upstream never produces an entry. Recording is best-effort; a failing
// recorder is logged by the caller and never undoes or blocks the mutation.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action represents the type of action being audited.
type Action string

const (
	ActionCellEdit   Action = "cell_edit"
	ActionRowDelete  Action = "row_delete"
	ActionFileUpload Action = "file_upload"
	ActionImport     Action = "csv_import"
)

// Severity represents the severity level of an audit entry.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Entry is a single audit log entry.
type Entry struct {
	ID         string    `json:"id"`
	Action     Action    `json:"action"`
	Severity   Severity  `json:"severity"`
	TableKey   string    `json:"tableKey"`
	RowKey     string    `json:"rowKey,omitempty"`
	ColumnName string    `json:"columnName,omitempty"`
	OldValue   string    `json:"oldValue,omitempty"`
	NewValue   string    `json:"newValue,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// NewEntry fills in the id, severity, timestamp and request metadata
// carried by ctx.
func NewEntry(ctx context.Context, action Action, table string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Action:    action,
		Severity:  determineSeverity(action),
		TableKey:  table,
		SessionID: SessionFromContext(ctx),
		IPAddress: IPAddressFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action Action) Severity {
	switch action {
	case ActionRowDelete, ActionImport:
		return SeverityHigh
	case ActionCellEdit, ActionFileUpload:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// LogRecorder writes entries to a structured logger. It is the default when
// no audit database is configured.
type LogRecorder struct {
	Logger *slog.Logger
}

// Record implements Recorder.
func (r LogRecorder) Record(ctx context.Context, e Entry) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "audit",
		"id", e.ID,
		"action", string(e.Action),
		"severity", string(e.Severity),
		"table", e.TableKey,
		"row", e.RowKey,
		"column", e.ColumnName,
		"old", e.OldValue,
		"new", e.NewValue,
		"session", e.SessionID,
		"ip", e.IPAddress,
	)
	return nil
}

// MemoryRecorder keeps entries in memory.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *MemoryRecorder) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
