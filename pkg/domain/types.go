package domain

import "time"

// StorageLimitBytes is the fixed per-owner storage ceiling (1 GiB).
const StorageLimitBytes int64 = 1 << 30

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// File describes one uploaded file. StoredName and StoragePath are internal
// and never serialized; callers only ever see the public projection.
type File struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	StoredName   string    `json:"-"`
	OriginalName string    `json:"originalName"`
	SizeBytes    int64     `json:"size"`
	MimeType     string    `json:"mimetype"`
	UploadedAt   time.Time `json:"uploadedAt"`
	StoragePath  string    `json:"-"`
}

// StorageUsage is the per-owner accounting snapshot.
type StorageUsage struct {
	UsedBytes  int64 `json:"storageUsage"`
	LimitBytes int64 `json:"storageLimit"`
	FileCount  int   `json:"fileCount"`
}
