package services

import (
	"testing"
	"time"
)

// raceStubStore simulates losing the get-or-create race: the first lookup
// sees no shared set, the insert hits the uniqueness constraint because a
// concurrent writer won, and the re-fetch finds the winner's row.
type raceStubStore struct {
	stubResponseStore
	winner  *ResponseSet
	lookups int
	inserts int
}

func (s *raceStubStore) GetSharedResponseSet(formID int64, respondent, interviewer string) (*ResponseSet, error) {
	s.lookups++
	if s.lookups == 1 {
		return nil, nil
	}
	return s.winner, nil
}

func (s *raceStubStore) InsertResponseSet(rs *ResponseSet) (*ResponseSet, error) {
	s.inserts++
	return nil, ErrDuplicateResponseSet
}

func TestResolveResponseSetLoserRefetches(t *testing.T) {
	winner := &ResponseSet{ID: 7, Token: "tok", FormID: 1, Respondent: "resp1", Interviewer: "int1", Shared: true}
	store := &raceStubStore{winner: winner}
	svc := NewResponseService(store, DefaultRegistry())

	set, err := svc.ResolveResponseSet(1, "resp1", "int1", false)
	if err != nil {
		t.Fatalf("ResolveResponseSet returned error: %v", err)
	}
	if set == nil || set.ID != winner.ID {
		t.Fatalf("expected winner's set, got %+v", set)
	}
	if store.inserts != 1 || store.lookups != 2 {
		t.Fatalf("lookups = %d, inserts = %d, want 2 and 1", store.lookups, store.inserts)
	}
}

func TestResolveResponseSetCreatesShared(t *testing.T) {
	store := &stubResponseStore{}
	svc := NewResponseService(store, DefaultRegistry())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	svc.newToken = func() string { return "tok1" }

	set, err := svc.ResolveResponseSet(1, "resp1", "int1", false)
	if err != nil {
		t.Fatalf("ResolveResponseSet returned error: %v", err)
	}
	if !set.Shared || set.Token != "tok1" {
		t.Fatalf("unexpected set: %+v", set)
	}
	again, err := svc.ResolveResponseSet(1, "resp1", "int1", false)
	if err != nil {
		t.Fatalf("ResolveResponseSet returned error: %v", err)
	}
	if again.ID != set.ID {
		t.Fatalf("expected same set on reuse, got %d and %d", set.ID, again.ID)
	}
}

func TestGetSetResponsesNotFound(t *testing.T) {
	svc := NewResponseService(&stubResponseStore{}, DefaultRegistry())
	if _, err := svc.GetSetResponses(99); err == nil {
		t.Fatalf("expected not found error")
	}
}
