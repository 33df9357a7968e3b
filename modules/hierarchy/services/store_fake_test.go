package services_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
)

type storeCall struct {
	Op    string
	ID    string
	Name  string
	Patch designation.Patch
}

// fakeStore is an in-memory designation store that records every call.
type fakeStore struct {
	mu     sync.Mutex
	nextID int
	items  []designation.Designation
	calls  []storeCall

	listErr   error
	failOn    func(call storeCall, n int) error
	updateNth int
	block     chan struct{}
}

func newFakeStore(items ...designation.Designation) *fakeStore {
	s := &fakeStore{nextID: 100}
	s.items = append(s.items, items...)
	return s
}

func (s *fakeStore) record(c storeCall) error {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	n := len(s.calls)
	fail := s.failOn
	s.mu.Unlock()
	if fail != nil {
		return fail(c, n)
	}
	return nil
}

func (s *fakeStore) Calls() []storeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storeCall(nil), s.calls...)
}

func (s *fakeStore) callsOf(op string) []storeCall {
	var out []storeCall
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeStore) get(id string) (designation.Designation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.items {
		if d.ID == id {
			return d, true
		}
	}
	return designation.Designation{}, false
}

func (s *fakeStore) byName(name string) []designation.Designation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []designation.Designation
	for _, d := range s.items {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

func (s *fakeStore) ListDesignations(ctx context.Context) ([]designation.Designation, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.record(storeCall{Op: "list"}); err != nil {
		return nil, err
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]designation.Designation(nil), s.items...), nil
}

func (s *fakeStore) CreateDesignation(_ context.Context, name string, level int) (designation.Designation, error) {
	if err := s.record(storeCall{Op: "create", Name: name}); err != nil {
		return designation.Designation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	d := designation.Designation{ID: strconv.Itoa(s.nextID), Name: name, Level: level}
	s.items = append(s.items, d)
	return d, nil
}

func (s *fakeStore) UpdateDesignation(_ context.Context, id string, patch designation.Patch) (designation.Designation, error) {
	if err := s.record(storeCall{Op: "update", ID: id, Patch: patch}); err != nil {
		return designation.Designation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.items {
		if d.ID == id {
			s.items[i] = patch.Apply(d)
			return s.items[i], nil
		}
	}
	return designation.Designation{}, fmt.Errorf("designation %s: %w", id, designation.ErrNotFound)
}

// stallingStore never answers an update and ignores its context.
type stallingStore struct {
	*fakeStore
	release chan struct{}
}

func (s *stallingStore) UpdateDesignation(_ context.Context, id string, patch designation.Patch) (designation.Designation, error) {
	_ = s.record(storeCall{Op: "update", ID: id, Patch: patch})
	<-s.release
	return designation.Designation{}, nil
}

func strPtr(s string) *string { return &s }
