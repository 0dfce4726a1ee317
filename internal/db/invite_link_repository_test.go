package db

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/ad/go-telegram-buttons/internal/models"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	testDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	if err := InitSchema(testDB); err != nil {
		testDB.Close()
		t.Fatalf("Failed to init schema: %v", err)
	}
	return testDB, func() { testDB.Close() }
}

func TestInviteLinkSaveAndGet(t *testing.T) {
	testDB, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInviteLinkRepository(testDB)
	link := &models.InviteLink{
		ChatID: -1001234567890,
		Title:  "My Channel",
		Link:   "https://t.me/+abcdef",
	}
	if err := repo.Save(link); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.GetByChatID(-1001234567890)
	if err != nil {
		t.Fatalf("GetByChatID failed: %v", err)
	}
	if got.Title != "My Channel" || got.Link != "https://t.me/+abcdef" {
		t.Errorf("Got %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func TestInviteLinkUpsert(t *testing.T) {
	testDB, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInviteLinkRepository(testDB)
	repo.Save(&models.InviteLink{ChatID: 1, Title: "Old", Link: "https://t.me/+old"})
	if err := repo.Save(&models.InviteLink{ChatID: 1, Title: "New", Link: "https://t.me/+new"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.GetByChatID(1)
	if err != nil {
		t.Fatalf("GetByChatID failed: %v", err)
	}
	if got.Title != "New" || got.Link != "https://t.me/+new" {
		t.Errorf("Upsert kept stale values: %+v", got)
	}

	links, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("Upsert created a duplicate row, got %d rows", len(links))
	}
}

func TestInviteLinkGetAllEmpty(t *testing.T) {
	testDB, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInviteLinkRepository(testDB)
	links, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("Expected no links, got %d", len(links))
	}
}

func TestInviteLinkGetMissing(t *testing.T) {
	testDB, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInviteLinkRepository(testDB)
	if _, err := repo.GetByChatID(404); err == nil {
		t.Error("Expected error for missing chat id, got nil")
	}
}
