package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type memorySink struct {
	mu      sync.Mutex
	entries []Entry
	fail    error
}

func (s *memorySink) Append(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *memorySink) all() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func TestWriterAppendsEntries(t *testing.T) {
	sink := &memorySink{}
	w := NewWriter(sink, nil, 16)

	w.Record(Event{
		Actor:     "doc-1",
		Action:    ActionFileUpload,
		Module:    "radiology",
		SubjectID: "pat-1",
		Outcome:   OutcomeSuccess,
		Risk:      RiskLow,
		Detail:    map[string]any{"file": "scan1.dcm"},
	})
	w.Record(Event{
		Action:  ActionIntegrityFail,
		Module:  "radiology",
		Outcome: OutcomeFailure,
		Risk:    RiskHigh,
	})
	w.Close()

	entries := sink.all()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ActorID == nil || *entries[0].ActorID != "doc-1" {
		t.Fatalf("expected actor doc-1, got %v", entries[0].ActorID)
	}
	if entries[1].ActorID != nil {
		t.Fatalf("system action should have nil actor, got %v", entries[1].ActorID)
	}
	if entries[0].Detail == nil {
		t.Fatal("expected detail payload to be recorded")
	}
}

func TestWriterSinkFailureDoesNotPropagate(t *testing.T) {
	sink := &memorySink{fail: errors.New("sink down")}
	w := NewWriter(sink, nil, 4)

	// Record must stay fire-and-forget even when the sink is broken.
	w.Record(Event{Action: ActionFileDownload, Outcome: OutcomeSuccess, Risk: RiskLow})
	w.Close()

	if got := len(sink.all()); got != 0 {
		t.Fatalf("expected no entries stored, got %d", got)
	}
}

func TestWriterRecordAfterCloseDoesNotPanic(t *testing.T) {
	w := NewWriter(&memorySink{}, nil, 4)
	w.Close()
	w.Record(Event{Action: ActionFileList, Outcome: OutcomeSuccess, Risk: RiskLow})
}

func TestClassifyRisk(t *testing.T) {
	cases := []struct {
		action string
		bypass bool
		want   string
	}{
		{ActionFileDownload, false, RiskLow},
		{ActionFileUpload, false, RiskLow},
		{ActionFileDelete, false, RiskHigh},
		{ActionFilePurge, false, RiskHigh},
		{ActionIntegrityFail, false, RiskHigh},
		{ActionFileDownload, true, RiskHigh},
	}
	for _, tc := range cases {
		if got := ClassifyRisk(tc.action, tc.bypass); got != tc.want {
			t.Fatalf("ClassifyRisk(%s, %v) = %s, want %s", tc.action, tc.bypass, got, tc.want)
		}
	}
}
