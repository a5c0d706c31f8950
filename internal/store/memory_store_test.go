package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"filevault/pkg/domain"
)

func testFile(owner, id string, size int64) domain.File {
	return domain.File{
		ID:           id,
		OwnerID:      owner,
		StoredName:   "stored-" + id,
		OriginalName: id + ".txt",
		SizeBytes:    size,
		MimeType:     "text/plain",
		UploadedAt:   time.Now().UTC(),
		StoragePath:  "/tmp/" + owner + "/" + id,
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	if err := s.CreateUser(domain.User{ID: "u1", Email: "alice@example.com"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := s.CreateUser(domain.User{ID: "u2", Email: "alice@example.com", PasswordHash: "other"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got: %v", err)
	}
}

func TestCreateUserEmailIsCaseSensitive(t *testing.T) {
	s := NewMemoryStore()
	if err := s.CreateUser(domain.User{ID: "u1", Email: "alice@example.com"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := s.CreateUser(domain.User{ID: "u2", Email: "Alice@example.com"}); err != nil {
		t.Fatalf("different-case email should register: %v", err)
	}
	if _, ok, _ := s.GetUserByEmail("alice@example.com"); !ok {
		t.Fatalf("expected exact-match lookup to find user")
	}
	if _, ok, _ := s.GetUserByEmail("ALICE@example.com"); ok {
		t.Fatalf("expected exact-match lookup to miss on different case")
	}
}

func TestConcurrentDuplicateRegistrationsOneWins(t *testing.T) {
	s := NewMemoryStore()
	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreateUser(domain.User{
				ID:    fmt.Sprintf("u%d", i),
				Email: "race@example.com",
			})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domain.ErrEmailTaken) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one registration to win, got %d", succeeded)
	}
}

func TestGetFileByOwnerNeverCrossesOwners(t *testing.T) {
	s := NewMemoryStore()
	// Same file id under two owners: lookups must stay inside the owner scope.
	if err := s.SaveFile(testFile("alice", "shared-id", 10)); err != nil {
		t.Fatalf("save alice file: %v", err)
	}
	if err := s.SaveFile(testFile("bob", "shared-id", 99)); err != nil {
		t.Fatalf("save bob file: %v", err)
	}

	f, ok, err := s.GetFileByOwner("alice", "shared-id")
	if err != nil || !ok {
		t.Fatalf("expected alice's file, ok=%v err=%v", ok, err)
	}
	if f.SizeBytes != 10 {
		t.Fatalf("got bob's record through alice's scope: %+v", f)
	}

	if _, ok, _ := s.GetFileByOwner("carol", "shared-id"); ok {
		t.Fatalf("expected no record for carol")
	}
}

func TestDeleteFileByOwnerIsScopedAndIdempotent(t *testing.T) {
	s := NewMemoryStore()
	if err := s.SaveFile(testFile("alice", "f1", 10)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveFile(testFile("bob", "f1", 20)); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Bob cannot remove alice's record even with a colliding id seen from his scope.
	if removed, err := s.DeleteFileByOwner("bob", "f1"); err != nil || !removed {
		t.Fatalf("bob delete own record: removed=%v err=%v", removed, err)
	}
	if _, ok, _ := s.GetFileByOwner("alice", "f1"); !ok {
		t.Fatalf("alice's record must survive bob's delete")
	}

	if removed, err := s.DeleteFileByOwner("alice", "f1"); err != nil || !removed {
		t.Fatalf("first delete: removed=%v err=%v", removed, err)
	}
	for i := 0; i < 2; i++ {
		removed, err := s.DeleteFileByOwner("alice", "f1")
		if err != nil {
			t.Fatalf("repeat delete errored: %v", err)
		}
		if removed {
			t.Fatalf("repeat delete reported a removal")
		}
	}
}

func TestListFilesByOwnerInsertionOrderAndEmpty(t *testing.T) {
	s := NewMemoryStore()
	files, err := s.ListFilesByOwner("nobody")
	if err != nil {
		t.Fatalf("list empty owner: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected empty slice, got %d entries", len(files))
	}

	for i := 0; i < 5; i++ {
		if err := s.SaveFile(testFile("alice", fmt.Sprintf("f%d", i), int64(i))); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	files, err = s.ListFilesByOwner("alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 5 {
		t.Fatalf("expected 5 files, got %d", len(files))
	}
	for i, f := range files {
		if f.ID != fmt.Sprintf("f%d", i) {
			t.Fatalf("unexpected order at %d: %s", i, f.ID)
		}
	}
}

func TestTotalSizeByOwnerTracksCreateAndDelete(t *testing.T) {
	s := NewMemoryStore()
	if total, _ := s.TotalSizeByOwner("alice"); total != 0 {
		t.Fatalf("expected 0 for empty owner, got %d", total)
	}
	_ = s.SaveFile(testFile("alice", "f1", 100))
	_ = s.SaveFile(testFile("alice", "f2", 250))
	_ = s.SaveFile(testFile("bob", "f3", 999))

	total, err := s.TotalSizeByOwner("alice")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 350 {
		t.Fatalf("expected 350, got %d", total)
	}

	if _, err := s.DeleteFileByOwner("alice", "f1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if total, _ := s.TotalSizeByOwner("alice"); total != 250 {
		t.Fatalf("expected 250 after delete, got %d", total)
	}
	if total, _ := s.TotalSizeByOwner("bob"); total != 999 {
		t.Fatalf("bob's accounting disturbed: %d", total)
	}
}

func TestConcurrentSaveFileNoLostUpdate(t *testing.T) {
	s := NewMemoryStore()
	// Two concurrent 600 MiB uploads for the same owner: both may land past
	// the advisory quota, but accounting must come out at exactly 1200 MiB.
	const size = 600 << 20
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SaveFile(testFile("alice", fmt.Sprintf("big%d", i), size))
		}(i)
	}
	wg.Wait()

	total, err := s.TotalSizeByOwner("alice")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 2*size {
		t.Fatalf("expected %d, got %d", int64(2*size), total)
	}
	files, _ := s.ListFilesByOwner("alice")
	if len(files) != 2 {
		t.Fatalf("expected 2 records, got %d", len(files))
	}
}

func TestConcurrentMixedMutationsStayConsistent(t *testing.T) {
	s := NewMemoryStore()
	const perOwner = 50
	owners := []string{"alice", "bob", "carol"}
	var wg sync.WaitGroup
	for _, owner := range owners {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			for i := 0; i < perOwner; i++ {
				_ = s.SaveFile(testFile(owner, fmt.Sprintf("f%d", i), 1))
			}
		}(owner)
	}
	wg.Wait()

	for _, owner := range owners {
		total, _ := s.TotalSizeByOwner(owner)
		if total != perOwner {
			t.Fatalf("%s: expected %d, got %d", owner, perOwner, total)
		}
	}
}
