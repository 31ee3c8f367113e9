package service

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/nintendo"
	"github.com/retendo/account/internal/observability"
	"github.com/retendo/account/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid account id or password")
	ErrAccountDeleted     = errors.New("account has been deleted")
	ErrAccountBanned      = errors.New("account is banned")
	ErrMalformedAuth      = errors.New("malformed authorization header")
)

// AccountAuthenticator resolves console credentials to network accounts.
// Two schemes exist: Basic with username and the console-side password
// pre-hash, and Bearer with a master-key session token.
type AccountAuthenticator struct {
	accounts  repository.RNIDRepository
	masterKey []byte
	now       func() time.Time
}

func NewAccountAuthenticator(accounts repository.RNIDRepository, masterKey []byte) *AccountAuthenticator {
	return &AccountAuthenticator{accounts: accounts, masterKey: masterKey, now: time.Now}
}

// AuthenticateBasic resolves a Basic authorization value of the form
// base64(user:pass).
func (a *AccountAuthenticator) AuthenticateBasic(ctx context.Context, encoded string) (*domain.RNID, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedAuth
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, ErrMalformedAuth
	}
	return a.AuthenticateCredentials(ctx, username, password)
}

// AuthenticateCredentials verifies a username/password pair. Unknown
// username and wrong password are indistinguishable to the caller.
func (a *AccountAuthenticator) AuthenticateCredentials(ctx context.Context, username, password string) (*domain.RNID, error) {
	account, err := a.accounts.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrRNIDNotFound) {
			observability.RecordCredentialResolution(ctx, "basic", "invalid")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	prehash := nintendo.PasswordHash(password, account.PID)
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(prehash)); err != nil {
		observability.RecordCredentialResolution(ctx, "basic", "invalid")
		return nil, ErrInvalidCredentials
	}

	if account.Deleted {
		observability.RecordCredentialResolution(ctx, "basic", "deleted")
		return account, ErrAccountDeleted
	}
	if account.Banned() {
		observability.RecordCredentialResolution(ctx, "basic", "banned")
		return account, ErrAccountBanned
	}

	observability.RecordCredentialResolution(ctx, "basic", "success")
	return account, nil
}

// AuthenticateBearer resolves a session token. A token that fails to
// decode, is expired, or points at a missing account leaves the request
// unauthenticated (nil, nil); callers decide whether that is fatal. A
// deleted account is returned alongside ErrAccountDeleted because the
// legacy protocol echoes the username back to the console.
//
// hexEncoded marks the one console family that submits tokens as lowercase
// hex instead of the textual encoding used everywhere else.
func (a *AccountAuthenticator) AuthenticateBearer(ctx context.Context, token string, hexEncoded bool) (*domain.RNID, error) {
	if hexEncoded {
		raw, err := hex.DecodeString(token)
		if err != nil {
			observability.RecordCredentialResolution(ctx, "bearer", "invalid")
			return nil, nil
		}
		token = nintendo.Base64Encode(raw)
	}

	raw, err := nintendo.Base64Decode(token)
	if err != nil {
		observability.RecordCredentialResolution(ctx, "bearer", "invalid")
		return nil, nil
	}

	payload, err := nintendo.DecodeToken(a.masterKey, raw)
	if err != nil {
		observability.RecordCredentialResolution(ctx, "bearer", "invalid")
		return nil, nil
	}

	if uint64(a.now().UnixMilli()) >= payload.ExpireTime {
		observability.RecordCredentialResolution(ctx, "bearer", "expired")
		return nil, nil
	}

	account, err := a.accounts.FindByPID(payload.PID)
	if err != nil {
		if errors.Is(err, repository.ErrRNIDNotFound) {
			observability.RecordCredentialResolution(ctx, "bearer", "unknown_account")
			return nil, nil
		}
		return nil, err
	}

	if account.Deleted {
		observability.RecordCredentialResolution(ctx, "bearer", "deleted")
		return account, ErrAccountDeleted
	}
	if account.Banned() {
		observability.RecordCredentialResolution(ctx, "bearer", "banned")
		return account, ErrAccountBanned
	}

	observability.RecordCredentialResolution(ctx, "bearer", "success")
	return account, nil
}
