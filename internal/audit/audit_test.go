package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestNewEntry_CarriesContextMetadata(t *testing.T) {
	ctx := ContextWithIPAddress(context.Background(), "10.0.0.7")
	ctx = ContextWithUserAgent(ctx, "test-agent")
	ctx = ContextWithSession(ctx, "sess-1")

	e := NewEntry(ctx, ActionRowDelete, "materiales")

	if _, err := uuid.Parse(e.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", e.ID, err)
	}
	if e.Severity != SeverityHigh {
		t.Errorf("Severity = %q, want %q", e.Severity, SeverityHigh)
	}
	if e.IPAddress != "10.0.0.7" || e.UserAgent != "test-agent" || e.SessionID != "sess-1" {
		t.Errorf("metadata = %q/%q/%q", e.IPAddress, e.UserAgent, e.SessionID)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		action Action
		want   Severity
	}{
		{ActionCellEdit, SeverityMedium},
		{ActionFileUpload, SeverityMedium},
		{ActionRowDelete, SeverityHigh},
		{ActionImport, SeverityHigh},
		{Action("other"), SeverityLow},
	}
	for _, tt := range tests {
		if got := determineSeverity(tt.action); got != tt.want {
			t.Errorf("determineSeverity(%q) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestMemoryRecorder(t *testing.T) {
	var m MemoryRecorder
	ctx := context.Background()
	_ = m.Record(ctx, NewEntry(ctx, ActionCellEdit, "a"))
	_ = m.Record(ctx, NewEntry(ctx, ActionImport, "b"))

	got := m.Entries()
	if len(got) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(got))
	}
	got[0].TableKey = "mutated"
	if m.Entries()[0].TableKey != "a" {
		t.Error("Entries must return a copy")
	}
}

func TestToPgUUID(t *testing.T) {
	if _, err := toPgUUID(uuid.NewString()); err != nil {
		t.Errorf("valid uuid rejected: %v", err)
	}
	if _, err := toPgUUID("not-a-uuid"); err == nil {
		t.Error("invalid uuid accepted")
	}
	if got := toPgText(""); got.Valid {
		t.Error("empty text should be NULL")
	}
}
