package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"

	"filevault/internal/storage"
	"filevault/internal/store"
	"filevault/pkg/auth"
	"filevault/pkg/domain"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// Config holds runtime configuration for the core application.
type Config struct {
	DataDir           string
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	JWTSecret         string
	SessionTTL        time.Duration
	StorageLimitBytes int64

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Injection points for tests and alternative backends.
	Store    store.Store
	Sessions store.SessionStore
	Blobs    storage.BlobStore
}

// App wires the identity store, the file registry, and blob storage behind
// the operations the HTTP layer calls.
type App struct {
	store      store.Store
	sessions   store.SessionStore
	blobs      storage.BlobStore
	limitBytes int64
}

// New constructs the application. The baseline runs on the in-memory store,
// JWT sessions, and disk blobs; config selects the gorm, redis, or minio
// backends behind the same interfaces.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.StorageLimitBytes <= 0 {
		cfg.StorageLimitBytes = domain.StorageLimitBytes
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL != "" {
			gs, err := store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
			dataStore = gs
		} else {
			dataStore = store.NewMemoryStore()
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch {
		case cfg.JWTSecret != "":
			sessionStore = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
		case cfg.RedisAddr != "":
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("session store required (jwtSecret or redisAddr)")
		}
	}

	blobStore := cfg.Blobs
	if blobStore == nil {
		if cfg.MinioEndpoint != "" {
			ms, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
			if err != nil {
				return nil, fmt.Errorf("init minio store: %w", err)
			}
			blobStore = ms
		} else {
			ds, err := storage.NewDiskStore(cfg.DataDir)
			if err != nil {
				return nil, err
			}
			blobStore = ds
		}
	}

	return &App{
		store:      dataStore,
		sessions:   sessionStore,
		blobs:      blobStore,
		limitBytes: cfg.StorageLimitBytes,
	}, nil
}

// SignUp registers a new user and issues a session token.
func (a *App) SignUp(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, "", fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.CreateUser(user); err != nil {
		return domain.User{}, "", err
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, "", fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a bearer token to its user.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	userID, ok, err := a.sessions.ResolveToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, exists, err := a.store.GetUserByID(userID)
	if err != nil || !exists {
		return domain.User{}, false
	}
	return user, true
}

// CheckQuota verifies that incoming bytes fit under the owner's ceiling.
// The check is advisory: it is not atomic with the registry insert, so two
// concurrent uploads may together exceed the ceiling. The usage report stays
// exact regardless.
func (a *App) CheckQuota(ownerID string, incomingSize int64) error {
	used, err := a.store.TotalSizeByOwner(ownerID)
	if err != nil {
		return fmt.Errorf("compute usage: %w", err)
	}
	if used+incomingSize > a.limitBytes {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// Upload persists a payload and registers it under the owner. The blob is
// written before the registry entry: a record's existence implies its blob
// was written, never the reverse.
func (a *App) Upload(ctx context.Context, ownerID, originalName, mimeType string, sizeHint int64, r io.Reader) (domain.File, error) {
	if err := a.CheckQuota(ownerID, sizeHint); err != nil {
		return domain.File{}, err
	}
	storedName := storage.NewStoredName(originalName)
	path, size, err := a.blobs.Save(ctx, ownerID, storedName, r)
	if err != nil {
		return domain.File{}, fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}
	file := domain.File{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		StoredName:   storedName,
		OriginalName: originalName,
		SizeBytes:    size,
		MimeType:     mimeType,
		UploadedAt:   time.Now().UTC(),
		StoragePath:  path,
	}
	if err := a.store.SaveFile(file); err != nil {
		return domain.File{}, fmt.Errorf("register file: %w", err)
	}
	return file, nil
}

// Download returns the file record and a reader over its blob. Foreign-owned
// and absent files are indistinguishable, and an orphaned record (blob gone)
// also reads as not found.
func (a *App) Download(ctx context.Context, ownerID, fileID string) (domain.File, io.ReadCloser, error) {
	file, ok, err := a.store.GetFileByOwner(ownerID, fileID)
	if err != nil {
		return domain.File{}, nil, fmt.Errorf("lookup file: %w", err)
	}
	if !ok {
		return domain.File{}, nil, domain.ErrNotFound
	}
	rc, err := a.blobs.Open(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.File{}, nil, domain.ErrNotFound
		}
		return domain.File{}, nil, fmt.Errorf("%w: %v", domain.ErrStorageRead, err)
	}
	return file, rc, nil
}

// Delete removes the blob and the registry entry. Blob removal is
// best-effort; the registry entry is removed regardless so the visible
// catalog stays tidy.
func (a *App) Delete(ctx context.Context, ownerID, fileID string) error {
	file, ok, err := a.store.GetFileByOwner(ownerID, fileID)
	if err != nil {
		return fmt.Errorf("lookup file: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	if err := a.blobs.Delete(ctx, file.StoragePath); err != nil {
		// Tolerated partial failure; the record still goes away.
		logFromContext(ctx).Warn("blob removal failed", "file_id", fileID, "err", err)
	}
	removed, err := a.store.DeleteFileByOwner(ownerID, fileID)
	if err != nil {
		return fmt.Errorf("deregister file: %w", err)
	}
	if !removed {
		// Concurrent double-delete already removed the record.
		return domain.ErrNotFound
	}
	return nil
}

// Info returns a single owner-scoped file record.
func (a *App) Info(ownerID, fileID string) (domain.File, error) {
	file, ok, err := a.store.GetFileByOwner(ownerID, fileID)
	if err != nil {
		return domain.File{}, fmt.Errorf("lookup file: %w", err)
	}
	if !ok {
		return domain.File{}, domain.ErrNotFound
	}
	return file, nil
}

// List returns the owner's files in upload order along with the usage report.
func (a *App) List(ownerID string) ([]domain.File, domain.StorageUsage, error) {
	files, err := a.store.ListFilesByOwner(ownerID)
	if err != nil {
		return nil, domain.StorageUsage{}, fmt.Errorf("list files: %w", err)
	}
	used, err := a.store.TotalSizeByOwner(ownerID)
	if err != nil {
		return nil, domain.StorageUsage{}, fmt.Errorf("compute usage: %w", err)
	}
	return files, domain.StorageUsage{
		UsedBytes:  used,
		LimitBytes: a.limitBytes,
		FileCount:  len(files),
	}, nil
}

// Usage returns the owner's storage accounting snapshot.
func (a *App) Usage(ownerID string) (domain.StorageUsage, error) {
	_, usage, err := a.List(ownerID)
	return usage, err
}
