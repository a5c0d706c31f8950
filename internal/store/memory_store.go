package store

import (
	"sync"

	"filevault/pkg/domain"
)

// MemoryStore is the baseline in-process store. User state lives behind one
// lock; each owner's file collection has its own lock so unrelated owners
// never contend.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]domain.User // key: user ID
	email  map[string]string      // email -> user ID
	owners map[string]*ownerFiles // owner ID -> file collection
}

type ownerFiles struct {
	mu    sync.RWMutex
	files []domain.File // insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]domain.User),
		email:  make(map[string]string),
		owners: make(map[string]*ownerFiles),
	}
}

// CreateUser registers a user. The duplicate check and the insert run under
// one lock so two concurrent registrations of the same email cannot both
// succeed. Email comparison is exact.
func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.email[u.Email]; taken {
		return domain.ErrEmailTaken
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// owner returns the file collection for ownerID. With create set, the
// collection is made on first use; concurrent first-use is safe.
func (m *MemoryStore) owner(ownerID string, create bool) *ownerFiles {
	m.mu.RLock()
	of := m.owners[ownerID]
	m.mu.RUnlock()
	if of != nil || !create {
		return of
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if of = m.owners[ownerID]; of == nil {
		of = &ownerFiles{}
		m.owners[ownerID] = of
	}
	return of
}

// SaveFile appends a file record to its owner's collection.
func (m *MemoryStore) SaveFile(f domain.File) error {
	of := m.owner(f.OwnerID, true)
	of.mu.Lock()
	defer of.mu.Unlock()
	of.files = append(of.files, f)
	return nil
}

// ListFilesByOwner returns the owner's files in insertion order.
func (m *MemoryStore) ListFilesByOwner(ownerID string) ([]domain.File, error) {
	of := m.owner(ownerID, false)
	if of == nil {
		return []domain.File{}, nil
	}
	of.mu.RLock()
	defer of.mu.RUnlock()
	out := make([]domain.File, len(of.files))
	copy(out, of.files)
	return out, nil
}

// GetFileByOwner finds a file by id within the owner's collection only.
func (m *MemoryStore) GetFileByOwner(ownerID, fileID string) (domain.File, bool, error) {
	of := m.owner(ownerID, false)
	if of == nil {
		return domain.File{}, false, nil
	}
	of.mu.RLock()
	defer of.mu.RUnlock()
	for _, f := range of.files {
		if f.ID == fileID {
			return f, true, nil
		}
	}
	return domain.File{}, false, nil
}

// DeleteFileByOwner removes a file record and reports whether a removal
// occurred. Other owners' records are never inspected.
func (m *MemoryStore) DeleteFileByOwner(ownerID, fileID string) (bool, error) {
	of := m.owner(ownerID, false)
	if of == nil {
		return false, nil
	}
	of.mu.Lock()
	defer of.mu.Unlock()
	for i, f := range of.files {
		if f.ID == fileID {
			of.files = append(of.files[:i], of.files[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// TotalSizeByOwner sums SizeBytes over the owner's current collection.
func (m *MemoryStore) TotalSizeByOwner(ownerID string) (int64, error) {
	of := m.owner(ownerID, false)
	if of == nil {
		return 0, nil
	}
	of.mu.RLock()
	defer of.mu.RUnlock()
	var total int64
	for _, f := range of.files {
		total += f.SizeBytes
	}
	return total, nil
}
