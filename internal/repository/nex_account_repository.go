package repository

import (
	"context"
	"errors"
	"math/rand/v2"

	"gorm.io/gorm"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/observability"
)

var (
	ErrNEXAccountNotFound = errors.New("nex account not found")
	ErrPIDSpaceExhausted  = errors.New("could not allocate an unused pid")
)

// pidAllocationAttempts bounds the random draw for a fresh PID. Collisions
// are rare until the range fills up, at which point callers must fail loudly
// rather than spin.
const pidAllocationAttempts = 10

type NEXAccountRepository interface {
	FindByPID(pid uint32) (*domain.NEXAccount, error)
	FindByOwningPID(owningPID uint32) ([]domain.NEXAccount, error)
	ExistsByPID(pid uint32) (bool, error)
	GeneratePID() (uint32, error)
	Create(account *domain.NEXAccount) error
	Update(account *domain.NEXAccount) error
	RegisterWithDevice(account *domain.NEXAccount, device *domain.Device) error
}

type GormNEXAccountRepository struct{ db *gorm.DB }

func NewNEXAccountRepository(db *gorm.DB) NEXAccountRepository {
	return &GormNEXAccountRepository{db: db}
}

func (r *GormNEXAccountRepository) FindByPID(pid uint32) (*domain.NEXAccount, error) {
	var a domain.NEXAccount
	err := r.db.Where("pid = ?", pid).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "nex_account", "find_by_pid", "not_found")
			return nil, ErrNEXAccountNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "nex_account", "find_by_pid", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "nex_account", "find_by_pid", "success")
	return &a, nil
}

func (r *GormNEXAccountRepository) FindByOwningPID(owningPID uint32) ([]domain.NEXAccount, error) {
	var accounts []domain.NEXAccount
	err := r.db.Where("owning_pid = ?", owningPID).Find(&accounts).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "nex_account", "find_by_owning_pid", "error")
		return accounts, err
	}
	observability.RecordRepositoryOperation(context.Background(), "nex_account", "find_by_owning_pid", "success")
	return accounts, nil
}

func (r *GormNEXAccountRepository) ExistsByPID(pid uint32) (bool, error) {
	var count int64
	err := r.db.Model(&domain.NEXAccount{}).Where("pid = ?", pid).Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "nex_account", "exists_by_pid", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(context.Background(), "nex_account", "exists_by_pid", "success")
	return count > 0, nil
}

// GeneratePID draws uniformly from the allocatable range until it finds an
// unused value, giving up after a fixed number of attempts.
func (r *GormNEXAccountRepository) GeneratePID() (uint32, error) {
	for range pidAllocationAttempts {
		pid := domain.PIDRangeMin + rand.N(domain.PIDRangeMax-domain.PIDRangeMin+1)
		taken, err := r.ExistsByPID(pid)
		if err != nil {
			return 0, err
		}
		if !taken {
			return pid, nil
		}
	}
	return 0, ErrPIDSpaceExhausted
}

func (r *GormNEXAccountRepository) Create(account *domain.NEXAccount) error {
	err := r.db.Create(account).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "nex_account", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "nex_account", "create", "success")
	return nil
}

func (r *GormNEXAccountRepository) Update(account *domain.NEXAccount) error {
	err := r.db.Save(account).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "nex_account", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "nex_account", "update", "success")
	return nil
}

// RegisterWithDevice persists a first registration atomically: the NEX
// account and its device land together or not at all. A concurrent
// registration of the same PID surfaces as gorm.ErrDuplicatedKey so the
// caller can redraw and retry.
func (r *GormNEXAccountRepository) RegisterWithDevice(account *domain.NEXAccount, device *domain.Device) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		if device.ID == 0 {
			return tx.Create(device).Error
		}
		return tx.Save(device).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(context.Background(), "nex_account", "register_with_device", "conflict")
		} else {
			observability.RecordRepositoryOperation(context.Background(), "nex_account", "register_with_device", "error")
		}
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "nex_account", "register_with_device", "success")
	return nil
}
