package targeting

import (
	"context"
	"sync"
)

// ContactStore is the in-memory owner of contact records. Writers are serialized;
// readers only wait for the final append of a write, never for the persistence step
// of an import.
type ContactStore struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	order   []string
	byID    map[string]Contact
}

// NewContactStore builds a store seeded with initial, which must have unique ids.
func NewContactStore(initial []Contact) (*ContactStore, error) {
	s := &ContactStore{byID: make(map[string]Contact)}
	if err := s.Add(initial); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends contacts. If any id collides with the store or with another contact in
// the same batch, nothing is added and a *DuplicateIDError names every colliding id.
func (s *ContactStore) Add(contacts []Contact) error {
	return s.Insert(context.Background(), contacts, nil)
}

// Insert is Add with a commit step: the batch is checked for collisions first, then
// commit runs and the contacts are appended only when it succeeds.
func (s *ContactStore) Insert(ctx context.Context, contacts []Contact, commit func(ctx context.Context, batch []Contact) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	fresh, collided := s.partition(contacts)
	if len(collided) > 0 {
		return &DuplicateIDError{IDs: ContactIDs(collided)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if commit != nil && len(fresh) > 0 {
		if err := commit(ctx, fresh); err != nil {
			return err
		}
	}
	s.appendLocked(fresh)
	return nil
}

// Merge is the import entry point. It splits candidates into fresh and colliding
// contacts, runs commit on the fresh ones and appends them only when commit succeeds.
// The colliding contacts are returned so the caller can report them.
func (s *ContactStore) Merge(ctx context.Context, candidates []Contact, commit func(ctx context.Context, accepted []Contact) error) (accepted, collided []Contact, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	accepted, collided = s.partition(candidates)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if commit != nil && len(accepted) > 0 {
		if err := commit(ctx, accepted); err != nil {
			return nil, nil, err
		}
	}
	s.appendLocked(accepted)
	return accepted, collided, nil
}

// Replace swaps the whole content, used when (re)loading from persistence.
func (s *ContactStore) Replace(contacts []Contact) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.swapLocked(contacts)
}

// Reload runs load and swaps in its result while holding the writer lock, so no import
// can merge between the read and the swap.
func (s *ContactStore) Reload(ctx context.Context, load func(ctx context.Context) ([]Contact, error)) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	contacts, err := load(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.swapLocked(contacts); err != nil {
		return 0, err
	}
	return len(contacts), nil
}

// swapLocked must run with writeMu held. Readers see either the old or the new
// content, never a partial one.
func (s *ContactStore) swapLocked(contacts []Contact) error {
	order := make([]string, 0, len(contacts))
	byID := make(map[string]Contact, len(contacts))
	var collided []Contact
	for _, c := range contacts {
		if _, ok := byID[c.ID]; ok {
			collided = append(collided, c)
			continue
		}
		order = append(order, c.ID)
		byID[c.ID] = c.Clone()
	}
	if len(collided) > 0 {
		return &DuplicateIDError{IDs: ContactIDs(collided)}
	}

	s.mu.Lock()
	s.order = order
	s.byID = byID
	s.mu.Unlock()
	return nil
}

// All returns a copy of every contact in insertion order.
func (s *ContactStore) All() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Contact, len(s.order))
	for i, id := range s.order {
		out[i] = s.byID[id].Clone()
	}
	return out
}

// Get looks up a contact by id.
func (s *ContactStore) Get(id string) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return Contact{}, false
	}
	return c.Clone(), true
}

// Len returns the number of contacts.
func (s *ContactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Lookup resolves ids to contacts in the given order, silently skipping unknown ids.
func (s *ContactStore) Lookup(ids []string) []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Contact, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.byID[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

// partition must run with writeMu held.
func (s *ContactStore) partition(contacts []Contact) (fresh, collided []Contact) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(contacts))
	for _, c := range contacts {
		_, inStore := s.byID[c.ID]
		_, inBatch := seen[c.ID]
		if inStore || inBatch {
			collided = append(collided, c)
			continue
		}
		seen[c.ID] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh, collided
}

// appendLocked must run with writeMu held.
func (s *ContactStore) appendLocked(contacts []Contact) {
	if len(contacts) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range contacts {
		s.order = append(s.order, c.ID)
		s.byID[c.ID] = c.Clone()
	}
}
