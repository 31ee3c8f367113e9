package service

import (
	"encoding/binary"
	"slices"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/repository"
)

type fakeDeviceRepo struct {
	devices []*domain.Device
	nextID  uint
}

func (r *fakeDeviceRepo) FindBySerial(serial string) (*domain.Device, error) {
	for _, d := range r.devices {
		if d.Serial == serial {
			return d, nil
		}
	}
	return nil, repository.ErrDeviceNotFound
}

func (r *fakeDeviceRepo) FindByCertificateHash(hash string) (*domain.Device, error) {
	for _, d := range r.devices {
		if d.CertificateHash == hash && hash != "" {
			return d, nil
		}
	}
	return nil, repository.ErrDeviceNotFound
}

func (r *fakeDeviceRepo) FindByFingerprint(model domain.Model, serial, environment, macHash, fcdCertHash string) (*domain.Device, error) {
	for _, d := range r.devices {
		if d.Model == model && d.Serial == serial && d.Environment == environment &&
			d.MACHash == macHash && d.FCDCertHash == fcdCertHash {
			return d, nil
		}
	}
	return nil, repository.ErrDeviceNotFound
}

func (r *fakeDeviceRepo) Create(device *domain.Device) error {
	r.nextID++
	device.ID = r.nextID
	r.devices = append(r.devices, device)
	return nil
}

func (r *fakeDeviceRepo) Update(device *domain.Device) error { return nil }

type fakeNEXAccountRepo struct {
	accounts map[uint32]*domain.NEXAccount
	nextPID  uint32
	devices  *fakeDeviceRepo
}

func newFakeNEXAccountRepo(devices *fakeDeviceRepo) *fakeNEXAccountRepo {
	return &fakeNEXAccountRepo{
		accounts: make(map[uint32]*domain.NEXAccount),
		nextPID:  domain.PIDRangeMin,
		devices:  devices,
	}
}

func (r *fakeNEXAccountRepo) FindByPID(pid uint32) (*domain.NEXAccount, error) {
	if a, ok := r.accounts[pid]; ok {
		return a, nil
	}
	return nil, repository.ErrNEXAccountNotFound
}

func (r *fakeNEXAccountRepo) FindByOwningPID(owningPID uint32) ([]domain.NEXAccount, error) {
	var out []domain.NEXAccount
	for _, a := range r.accounts {
		if a.OwningPID == owningPID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeNEXAccountRepo) ExistsByPID(pid uint32) (bool, error) {
	_, ok := r.accounts[pid]
	return ok, nil
}

func (r *fakeNEXAccountRepo) GeneratePID() (uint32, error) {
	for {
		pid := r.nextPID
		r.nextPID++
		if _, taken := r.accounts[pid]; !taken {
			return pid, nil
		}
	}
}

func (r *fakeNEXAccountRepo) Create(account *domain.NEXAccount) error {
	if _, taken := r.accounts[account.PID]; taken {
		return gorm.ErrDuplicatedKey
	}
	r.accounts[account.PID] = account
	return nil
}

func (r *fakeNEXAccountRepo) Update(account *domain.NEXAccount) error {
	r.accounts[account.PID] = account
	return nil
}

func (r *fakeNEXAccountRepo) RegisterWithDevice(account *domain.NEXAccount, device *domain.Device) error {
	if _, taken := r.accounts[account.PID]; taken {
		return gorm.ErrDuplicatedKey
	}
	r.accounts[account.PID] = account
	if device.ID == 0 && r.devices != nil {
		return r.devices.Create(device)
	}
	return nil
}

type fakeGameServerRepo struct {
	servers []domain.GameServer
}

func (r *fakeGameServerRepo) FindByTitleID(titleID, accessMode string) (*domain.GameServer, error) {
	for i := range r.servers {
		if r.servers[i].AccessMode == accessMode && slices.Contains(r.servers[i].TitleIDs, titleID) {
			return &r.servers[i], nil
		}
	}
	return nil, repository.ErrGameServerNotFound
}

func (r *fakeGameServerRepo) FindByClientID(clientID, accessMode string) (*domain.GameServer, error) {
	for i := range r.servers {
		if r.servers[i].ClientID == clientID && r.servers[i].AccessMode == accessMode {
			return &r.servers[i], nil
		}
	}
	return nil, repository.ErrGameServerNotFound
}

func (r *fakeGameServerRepo) FindByGameServerID(gameServerID, accessMode string) (*domain.GameServer, error) {
	for i := range r.servers {
		if r.servers[i].GameServerID == gameServerID && r.servers[i].AccessMode == accessMode {
			return &r.servers[i], nil
		}
	}
	return nil, repository.ErrGameServerNotFound
}

func (r *fakeGameServerRepo) List() ([]domain.GameServer, error) { return r.servers, nil }

type fakeRNIDRepo struct {
	accounts []*domain.RNID
}

func (r *fakeRNIDRepo) FindByUsername(username string) (*domain.RNID, error) {
	for _, a := range r.accounts {
		if a.UsernameLower == strings.ToLower(username) {
			return a, nil
		}
	}
	return nil, repository.ErrRNIDNotFound
}

func (r *fakeRNIDRepo) FindByPID(pid uint32) (*domain.RNID, error) {
	for _, a := range r.accounts {
		if a.PID == pid {
			return a, nil
		}
	}
	return nil, repository.ErrRNIDNotFound
}

func (r *fakeRNIDRepo) Create(account *domain.RNID) error {
	account.UsernameLower = strings.ToLower(account.Username)
	r.accounts = append(r.accounts, account)
	return nil
}

func (r *fakeRNIDRepo) Update(account *domain.RNID) error { return nil }

// buildConsoleCertificate assembles a structurally valid certificate blob.
// keyType 0x2 yields the ECDSA layout (3DS family), anything else RSA-2048
// (Wii U family).
func buildConsoleCertificate(t *testing.T, keyType uint32, name string) []byte {
	t.Helper()

	sigType := uint32(0x10005)
	sigSize, padSize := 0x3C, 0x40
	if keyType != 0x2 {
		sigType = 0x10004
		sigSize, padSize = 0x100, 0x3C
	}

	raw := make([]byte, 4+sigSize+padSize+0x88)
	binary.BigEndian.PutUint32(raw, sigType)

	body := raw[4+sigSize+padSize:]
	copy(body[0x00:], "Nintendo CA - G3_NintendoCTR2prod")
	binary.BigEndian.PutUint32(body[0x40:], keyType)
	copy(body[0x44:], name)
	binary.BigEndian.PutUint32(body[0x84:], 0x11223344)
	return raw
}
