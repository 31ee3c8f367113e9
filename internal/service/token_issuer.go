package service

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/nintendo"
	"github.com/retendo/account/internal/repository"
)

var (
	ErrNoGameServer          = errors.New("no game server serves this request")
	ErrGameServerMaintenance = errors.New("game server is under maintenance")
	ErrNoNEXAccount          = errors.New("account has no linked nex account")
)

// tokenLifetime applies to every token this service mints.
const tokenLifetime = time.Hour

// NEXTokenGrant carries everything a console needs for the secondary
// authentication handshake it performs against the game server directly.
type NEXTokenGrant struct {
	Host     string
	Port     int
	PID      uint32
	Password string
	Token    string
}

type OAuthTokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// TokenIssuer mints service, NEX and OAuth session tokens. Service and NEX
// tokens are encrypted with the target server's own key; OAuth tokens use
// the process-wide master key.
type TokenIssuer struct {
	servers     *GameServerDirectory
	nexAccounts repository.NEXAccountRepository
	masterKey   []byte
	now         func() time.Time
}

func NewTokenIssuer(servers *GameServerDirectory, nexAccounts repository.NEXAccountRepository, masterKey []byte) *TokenIssuer {
	return &TokenIssuer{servers: servers, nexAccounts: nexAccounts, masterKey: masterKey, now: time.Now}
}

// ServiceToken mints a service token for the server registered under the
// caller's client ID, bound to the requesting title.
func (i *TokenIssuer) ServiceToken(ctx context.Context, account *domain.RNID, clientID, titleID string, hexEncoded bool) (string, error) {
	server, err := i.resolveServer(func() (*domain.GameServer, error) {
		return i.servers.ByClientID(ctx, clientID, account.ServerAccessLevel)
	})
	if err != nil {
		return "", err
	}
	return i.mintServerToken(server, account, nintendo.TokenTypeService, titleID, hexEncoded)
}

// NEXToken mints a NEX token for the server registered under the given game
// server ID and returns it with the linked NEX account credentials.
func (i *TokenIssuer) NEXToken(ctx context.Context, account *domain.RNID, gameServerID, titleID string, hexEncoded bool) (*NEXTokenGrant, error) {
	nexAccounts, err := i.nexAccounts.FindByOwningPID(account.PID)
	if err != nil {
		return nil, err
	}
	if len(nexAccounts) == 0 {
		return nil, ErrNoNEXAccount
	}
	nexAccount := &nexAccounts[0]

	server, err := i.resolveServer(func() (*domain.GameServer, error) {
		return i.servers.ByGameServerID(ctx, gameServerID, account.ServerAccessLevel)
	})
	if err != nil {
		return nil, err
	}

	token, err := i.mintServerToken(server, account, nintendo.TokenTypeNEX, titleID, hexEncoded)
	if err != nil {
		return nil, err
	}

	return &NEXTokenGrant{
		Host:     server.IP,
		Port:     server.Port,
		PID:      nexAccount.PID,
		Password: nexAccount.Password,
		Token:    token,
	}, nil
}

// OAuthTokens mints an access/refresh pair with the master key. The pair is
// hex-encoded on the wire, matching the console's OAuth surface.
func (i *TokenIssuer) OAuthTokens(_ context.Context, account *domain.RNID) (*OAuthTokenPair, error) {
	expire := uint64(i.now().Add(tokenLifetime).UnixMilli())

	access, err := i.mintMasterToken(nintendo.TokenTypeOAuthAccess, account.PID, expire)
	if err != nil {
		return nil, err
	}
	refresh, err := i.mintMasterToken(nintendo.TokenTypeOAuthRefresh, account.PID, expire)
	if err != nil {
		return nil, err
	}

	return &OAuthTokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(tokenLifetime / time.Second),
	}, nil
}

func (i *TokenIssuer) resolveServer(fetch func() (*domain.GameServer, error)) (*domain.GameServer, error) {
	server, err := fetch()
	if err != nil {
		if errors.Is(err, repository.ErrGameServerNotFound) {
			return nil, ErrNoGameServer
		}
		return nil, err
	}
	if server.AESKey == "" {
		return nil, ErrNoGameServer
	}
	if server.MaintenanceMode {
		return nil, ErrGameServerMaintenance
	}
	return server, nil
}

func (i *TokenIssuer) mintServerToken(server *domain.GameServer, account *domain.RNID, tokenType nintendo.TokenType, titleID string, hexEncoded bool) (string, error) {
	title, err := strconv.ParseUint(titleID, 16, 64)
	if err != nil {
		return "", fmt.Errorf("parse title id %q: %w", titleID, err)
	}
	key, err := decodeServerKey(server.AESKey)
	if err != nil {
		return "", err
	}

	payload := nintendo.TokenPayload{
		SystemType: nintendo.SystemType(server.SystemType),
		TokenType:  tokenType,
		PID:        account.PID,
		ExpireTime: uint64(i.now().Add(tokenLifetime).UnixMilli()),
		Extra: &nintendo.TokenExtra{
			TitleID:     title,
			AccessLevel: int8(account.AccessLevel),
		},
	}

	raw, err := nintendo.EncodeToken(key, payload)
	if err != nil {
		return "", err
	}
	if hexEncoded {
		return hex.EncodeToString(raw), nil
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodeServerKey(keyHex string) ([]byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode server key: %w", err)
	}
	return key, nil
}

func (i *TokenIssuer) mintMasterToken(tokenType nintendo.TokenType, pid uint32, expire uint64) (string, error) {
	raw, err := nintendo.EncodeToken(i.masterKey, nintendo.TokenPayload{
		SystemType: nintendo.SystemWiiU,
		TokenType:  tokenType,
		PID:        pid,
		ExpireTime: expire,
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
