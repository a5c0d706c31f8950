package store

import "time"

// GORM models used by the persistent backend.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type FileModel struct {
	ID           string `gorm:"primaryKey"`
	OwnerID      string `gorm:"not null;index"`
	StoredName   string `gorm:"not null"`
	OriginalName string `gorm:"not null"`
	SizeBytes    int64  `gorm:"not null"`
	MimeType     string
	UploadedAt   time.Time `gorm:"not null;index"`
	StoragePath  string    `gorm:"not null"`
}
