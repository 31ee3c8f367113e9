package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/observability"
)

var ErrRNIDNotFound = errors.New("rnid not found")

type RNIDRepository interface {
	FindByUsername(username string) (*domain.RNID, error)
	FindByPID(pid uint32) (*domain.RNID, error)
	Create(account *domain.RNID) error
	Update(account *domain.RNID) error
}

type GormRNIDRepository struct{ db *gorm.DB }

func NewRNIDRepository(db *gorm.DB) RNIDRepository { return &GormRNIDRepository{db: db} }

// FindByUsername is case-insensitive; lookups go through the lowercased
// shadow column.
func (r *GormRNIDRepository) FindByUsername(username string) (*domain.RNID, error) {
	var a domain.RNID
	err := r.db.Where("username_lower = ?", strings.ToLower(username)).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "rnid", "find_by_username", "not_found")
			return nil, ErrRNIDNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "rnid", "find_by_username", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "rnid", "find_by_username", "success")
	return &a, nil
}

func (r *GormRNIDRepository) FindByPID(pid uint32) (*domain.RNID, error) {
	var a domain.RNID
	err := r.db.Where("pid = ?", pid).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "rnid", "find_by_pid", "not_found")
			return nil, ErrRNIDNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "rnid", "find_by_pid", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "rnid", "find_by_pid", "success")
	return &a, nil
}

func (r *GormRNIDRepository) Create(account *domain.RNID) error {
	account.UsernameLower = strings.ToLower(account.Username)
	err := r.db.Create(account).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "rnid", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "rnid", "create", "success")
	return nil
}

func (r *GormRNIDRepository) Update(account *domain.RNID) error {
	account.UsernameLower = strings.ToLower(account.Username)
	err := r.db.Save(account).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "rnid", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "rnid", "update", "success")
	return nil
}
