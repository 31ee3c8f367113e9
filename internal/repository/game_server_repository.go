package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/observability"
)

var ErrGameServerNotFound = errors.New("game server not found")

type GameServerRepository interface {
	FindByTitleID(titleID, accessMode string) (*domain.GameServer, error)
	FindByClientID(clientID, accessMode string) (*domain.GameServer, error)
	FindByGameServerID(gameServerID, accessMode string) (*domain.GameServer, error)
	List() ([]domain.GameServer, error)
}

type GormGameServerRepository struct{ db *gorm.DB }

func NewGameServerRepository(db *gorm.DB) GameServerRepository {
	return &GormGameServerRepository{db: db}
}

// FindByTitleID scans candidates in the requested access mode and matches
// the title list in memory. Title IDs live in a serialized JSON column, so
// the filter cannot be pushed into SQL portably.
func (r *GormGameServerRepository) FindByTitleID(titleID, accessMode string) (*domain.GameServer, error) {
	var servers []domain.GameServer
	err := r.db.Where("access_mode = ?", accessMode).Find(&servers).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "game_server", "find_by_title_id", "error")
		return nil, err
	}
	for i := range servers {
		if servers[i].ServesTitle(titleID) {
			observability.RecordRepositoryOperation(context.Background(), "game_server", "find_by_title_id", "success")
			return &servers[i], nil
		}
	}
	observability.RecordRepositoryOperation(context.Background(), "game_server", "find_by_title_id", "not_found")
	return nil, ErrGameServerNotFound
}

func (r *GormGameServerRepository) FindByClientID(clientID, accessMode string) (*domain.GameServer, error) {
	var s domain.GameServer
	err := r.db.Where("client_id = ? AND access_mode = ?", clientID, accessMode).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "game_server", "find_by_client_id", "not_found")
			return nil, ErrGameServerNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "game_server", "find_by_client_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "game_server", "find_by_client_id", "success")
	return &s, nil
}

func (r *GormGameServerRepository) FindByGameServerID(gameServerID, accessMode string) (*domain.GameServer, error) {
	var s domain.GameServer
	err := r.db.Where("game_server_id = ? AND access_mode = ?", gameServerID, accessMode).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "game_server", "find_by_game_server_id", "not_found")
			return nil, ErrGameServerNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "game_server", "find_by_game_server_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "game_server", "find_by_game_server_id", "success")
	return &s, nil
}

func (r *GormGameServerRepository) List() ([]domain.GameServer, error) {
	var servers []domain.GameServer
	err := r.db.Find(&servers).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "game_server", "list", "error")
		return servers, err
	}
	observability.RecordRepositoryOperation(context.Background(), "game_server", "list", "success")
	return servers, nil
}
