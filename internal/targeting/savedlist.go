package targeting

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SavedList is a named snapshot of filter criteria and selected contact ids.
type SavedList struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Filters    FilterCriteria `json:"filters"`
	ContactIDs []string       `json:"contacts"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Clone deep-copies the list.
func (l SavedList) Clone() SavedList {
	out := l
	out.Filters = l.Filters.Clone()
	out.ContactIDs = slices.Clone(l.ContactIDs)
	return out
}

// SavedListManager keeps saved lists in creation order.
type SavedListManager struct {
	mu    sync.RWMutex
	lists []SavedList
	now   func() time.Time
	newID func() string
}

// NewSavedListManager returns an empty manager.
func NewSavedListManager() *SavedListManager {
	return &SavedListManager{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Load replaces the managed lists, e.g. with what persistence returned at startup.
func (m *SavedListManager) Load(lists []SavedList) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists = make([]SavedList, len(lists))
	for i, l := range lists {
		m.lists[i] = l.Clone()
	}
}

// Prepare validates name and builds the snapshot Save would store, without storing it.
// Callers that persist before committing use Prepare followed by Commit.
func (m *SavedListManager) Prepare(name string, criteria FilterCriteria, selectedIDs []string) (SavedList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkNameLocked(name, ""); err != nil {
		return SavedList{}, err
	}
	return SavedList{
		ID:         m.newID(),
		Name:       name,
		Filters:    criteria.Clone(),
		ContactIDs: dedupe(selectedIDs),
		CreatedAt:  m.now().UTC(),
	}, nil
}

// Commit stores a list built by Prepare. The name is re-checked so a concurrent save
// of the same name cannot slip in between.
func (m *SavedListManager) Commit(list SavedList) (SavedList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkNameLocked(list.Name, list.ID); err != nil {
		return SavedList{}, err
	}
	m.lists = append(m.lists, list.Clone())
	return list.Clone(), nil
}

// Save validates the name and stores an immutable snapshot of criteria and selection.
func (m *SavedListManager) Save(name string, criteria FilterCriteria, selectedIDs []string) (SavedList, error) {
	list, err := m.Prepare(name, criteria, selectedIDs)
	if err != nil {
		return SavedList{}, err
	}
	return m.Commit(list)
}

// List returns every saved list in creation order.
func (m *SavedListManager) List() []SavedList {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SavedList, len(m.lists))
	for i, l := range m.lists {
		out[i] = l.Clone()
	}
	return out
}

// Get looks up a saved list by id.
func (m *SavedListManager) Get(id string) (SavedList, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.indexLocked(id); i >= 0 {
		return m.lists[i].Clone(), true
	}
	return SavedList{}, false
}

// CheckRename reports whether id can be renamed to name.
func (m *SavedListManager) CheckRename(id, name string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.indexLocked(id) < 0 {
		return ErrListNotFound
	}
	return m.checkNameLocked(name, id)
}

// Rename changes the name of a saved list under the same rules as Save.
func (m *SavedListManager) Rename(id, name string) (SavedList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return SavedList{}, ErrListNotFound
	}
	if err := m.checkNameLocked(name, id); err != nil {
		return SavedList{}, err
	}
	m.lists[i].Name = name
	return m.lists[i].Clone(), nil
}

// Delete removes a list. Unknown ids are ignored. It reports whether a list was removed.
func (m *SavedListManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return false
	}
	m.lists = slices.Delete(m.lists, i, i+1)
	return true
}

// Len returns the number of saved lists.
func (m *SavedListManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lists)
}

// Resolve returns the live contacts of a saved list. Ids that no longer exist in the
// store are skipped.
func Resolve(list SavedList, store *ContactStore) []Contact {
	return store.Lookup(list.ContactIDs)
}

func (m *SavedListManager) checkNameLocked(name, exceptID string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	for _, l := range m.lists {
		if l.Name == name && l.ID != exceptID {
			return ErrDuplicateName
		}
	}
	return nil
}

func (m *SavedListManager) indexLocked(id string) int {
	return slices.IndexFunc(m.lists, func(l SavedList) bool { return l.ID == id })
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
