package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"filevault/pkg/domain"
)

// GormStore implements Store using GORM + Postgres. It is the durability
// extension point; the baseline deployment runs on MemoryStore.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &FileModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUser inserts a user. The unique index on email upholds the duplicate
// invariant even under concurrent registrations.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetUserByEmail looks up a user by exact email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveFile inserts a file record.
func (s *GormStore) SaveFile(f domain.File) error {
	model := fileToModel(f)
	return s.db.Create(&model).Error
}

// ListFilesByOwner returns the owner's files in upload order.
func (s *GormStore) ListFilesByOwner(ownerID string) ([]domain.File, error) {
	var models []FileModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("uploaded_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.File, 0, len(models))
	for _, m := range models {
		res = append(res, fileFromModel(m))
	}
	return res, nil
}

// GetFileByOwner retrieves a file scoped to its owner.
func (s *GormStore) GetFileByOwner(ownerID, fileID string) (domain.File, bool, error) {
	var model FileModel
	if err := s.db.First(&model, "owner_id = ? AND id = ?", ownerID, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.File{}, false, nil
		}
		return domain.File{}, false, err
	}
	return fileFromModel(model), true, nil
}

// DeleteFileByOwner removes a file scoped to its owner and reports whether a
// row was removed.
func (s *GormStore) DeleteFileByOwner(ownerID, fileID string) (bool, error) {
	res := s.db.Delete(&FileModel{}, "owner_id = ? AND id = ?", ownerID, fileID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TotalSizeByOwner sums size_bytes over the owner's files.
func (s *GormStore) TotalSizeByOwner(ownerID string) (int64, error) {
	var total int64
	err := s.db.Model(&FileModel{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func fileToModel(f domain.File) FileModel {
	return FileModel{
		ID:           f.ID,
		OwnerID:      f.OwnerID,
		StoredName:   f.StoredName,
		OriginalName: f.OriginalName,
		SizeBytes:    f.SizeBytes,
		MimeType:     f.MimeType,
		UploadedAt:   f.UploadedAt,
		StoragePath:  f.StoragePath,
	}
}

func fileFromModel(m FileModel) domain.File {
	return domain.File{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		StoredName:   m.StoredName,
		OriginalName: m.OriginalName,
		SizeBytes:    m.SizeBytes,
		MimeType:     m.MimeType,
		UploadedAt:   m.UploadedAt,
		StoragePath:  m.StoragePath,
	}
}
