package repository

import (
	"errors"
	"testing"

	"github.com/retendo/account/internal/domain"
)

func TestGameServerRepositoryFindByTitleID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGameServerRepository(db)

	prod := &domain.GameServer{
		ClientID:     "client-prod",
		GameServerID: "0001",
		TitleIDs:     domain.TitleIDList{"000500001018DB00", "000500001018DC00"},
		AccessMode:   "prod",
		AESKey:       "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
	}
	test := &domain.GameServer{
		ClientID:     "client-test",
		GameServerID: "0001",
		TitleIDs:     domain.TitleIDList{"000500001018DB00"},
		AccessMode:   "test",
		AESKey:       "ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100",
	}
	if err := db.Create(prod).Error; err != nil {
		t.Fatalf("seed prod server: %v", err)
	}
	if err := db.Create(test).Error; err != nil {
		t.Fatalf("seed test server: %v", err)
	}

	got, err := repo.FindByTitleID("000500001018DB00", "prod")
	if err != nil {
		t.Fatalf("find by title: %v", err)
	}
	if got.ClientID != "client-prod" {
		t.Fatalf("access mode filter leaked: %+v", got)
	}

	got, err = repo.FindByTitleID("000500001018DB00", "test")
	if err != nil {
		t.Fatalf("find by title in test mode: %v", err)
	}
	if got.ClientID != "client-test" {
		t.Fatalf("expected the test-mode server: %+v", got)
	}

	if _, err := repo.FindByTitleID("0005000000000000", "prod"); !errors.Is(err, ErrGameServerNotFound) {
		t.Fatalf("expected ErrGameServerNotFound, got %v", err)
	}
}

func TestGameServerRepositoryFindByGameServerID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGameServerRepository(db)

	s := &domain.GameServer{
		ClientID:     "client-a",
		GameServerID: "00FF",
		AccessMode:   "prod",
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed server: %v", err)
	}

	got, err := repo.FindByGameServerID("00FF", "prod")
	if err != nil {
		t.Fatalf("find by game server id: %v", err)
	}
	if got.ClientID != "client-a" {
		t.Fatalf("unexpected server: %+v", got)
	}

	if _, err := repo.FindByGameServerID("00FF", "test"); !errors.Is(err, ErrGameServerNotFound) {
		t.Fatalf("expected ErrGameServerNotFound for wrong access mode, got %v", err)
	}
}
