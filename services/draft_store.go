package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"tregorent/backend/models"
)

var ErrDraftNotFound = errors.New("draft not found")

// DraftStore keeps open drafts in memory, each owned by one admin. Staged
// image bytes live here until submit, so abandoned drafts are swept.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[string]*Draft
	ttl    time.Duration
	now    func() time.Time
}

// NewDraftStore evicts drafts left idle for longer than ttl on Sweep.
func NewDraftStore(ttl time.Duration) *DraftStore {
	return &DraftStore{
		drafts: make(map[string]*Draft),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Open starts a draft for owner, seeded when editing an existing listing.
func (s *DraftStore) Open(owner string, kind models.ListingKind, seed *models.Listing) *Draft {
	d := NewDraft(kind, seed)
	d.owner = owner
	d.touched = s.now()

	s.mu.Lock()
	s.drafts[d.id] = d
	s.mu.Unlock()
	return d
}

// Get returns owner's draft. Drafts of other admins are reported missing.
func (s *DraftStore) Get(owner, id string) (*Draft, error) {
	s.mu.Lock()
	d, ok := s.drafts[id]
	s.mu.Unlock()

	if !ok || d.owner != owner {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

// Discard closes a draft without submitting it.
func (s *DraftStore) Discard(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok || d.owner != owner {
		return ErrDraftNotFound
	}
	delete(s.drafts, id)
	return nil
}

// Len returns the number of open drafts.
func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// Sweep removes drafts idle for longer than the store's ttl. Drafts with
// a submission in flight are never removed.
func (s *DraftStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, d := range s.drafts {
		if d.idleSince(now) > s.ttl {
			delete(s.drafts, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("Evicted %d abandoned drafts", removed)
	}
	return removed
}
