package store

import "filevault/pkg/domain"

// Store defines persistence operations for users and the per-owner file
// registry. All file operations are owner-scoped: a file id that exists under
// a different owner must never be visible.
type Store interface {
	// users
	CreateUser(domain.User) error // domain.ErrEmailTaken on duplicate email
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// files
	SaveFile(domain.File) error
	ListFilesByOwner(ownerID string) ([]domain.File, error)
	GetFileByOwner(ownerID, fileID string) (domain.File, bool, error)
	DeleteFileByOwner(ownerID, fileID string) (bool, error)
	TotalSizeByOwner(ownerID string) (int64, error)
}

// SessionStore issues bearer tokens and resolves them back to user IDs.
// A token that fails verification resolves to (_, false, nil); errors are
// reserved for backend faults.
type SessionStore interface {
	NewSession(userID string) (string, error)
	ResolveToken(token string) (string, bool, error)
}
