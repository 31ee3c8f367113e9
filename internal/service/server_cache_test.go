package service

import (
	"context"
	"testing"

	"github.com/retendo/account/internal/domain"
)

// countingGameServerRepo wraps the fake and counts repository hits so the
// tests can observe cache behavior.
type countingGameServerRepo struct {
	fakeGameServerRepo
	titleLookups int
}

func (r *countingGameServerRepo) FindByTitleID(titleID, accessMode string) (*domain.GameServer, error) {
	r.titleLookups++
	return r.fakeGameServerRepo.FindByTitleID(titleID, accessMode)
}

func TestGameServerDirectoryCachesTitleLookups(t *testing.T) {
	repo := &countingGameServerRepo{fakeGameServerRepo: fakeGameServerRepo{
		servers: []domain.GameServer{testGameServer(testTitleID, "prod")},
	}}
	directory := NewGameServerDirectory(repo, NewInMemoryGameServerCache())

	for range 3 {
		server, err := directory.ByTitleID(context.Background(), testTitleID, "prod")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if server.ClientID != "client-1" {
			t.Fatalf("unexpected server: %+v", server)
		}
	}

	if repo.titleLookups != 1 {
		t.Fatalf("expected a single repository hit, got %d", repo.titleLookups)
	}
}

func TestGameServerDirectoryInvalidateForcesRefresh(t *testing.T) {
	repo := &countingGameServerRepo{fakeGameServerRepo: fakeGameServerRepo{
		servers: []domain.GameServer{testGameServer(testTitleID, "prod")},
	}}
	directory := NewGameServerDirectory(repo, NewInMemoryGameServerCache())

	if _, err := directory.ByTitleID(context.Background(), testTitleID, "prod"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if err := directory.InvalidateTitle(context.Background(), testTitleID, "prod"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := directory.ByTitleID(context.Background(), testTitleID, "prod"); err != nil {
		t.Fatalf("lookup after invalidate: %v", err)
	}

	if repo.titleLookups != 2 {
		t.Fatalf("expected two repository hits, got %d", repo.titleLookups)
	}
}

func TestGameServerDirectoryWithoutCache(t *testing.T) {
	repo := &countingGameServerRepo{fakeGameServerRepo: fakeGameServerRepo{
		servers: []domain.GameServer{testGameServer(testTitleID, "prod")},
	}}
	directory := NewGameServerDirectory(repo, nil)

	for range 2 {
		if _, err := directory.ByTitleID(context.Background(), testTitleID, "prod"); err != nil {
			t.Fatalf("lookup: %v", err)
		}
	}
	if repo.titleLookups != 2 {
		t.Fatalf("noop cache must pass through, got %d hits", repo.titleLookups)
	}
}
