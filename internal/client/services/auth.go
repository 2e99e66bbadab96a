package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/store"
	"github.com/dmitrijs2005/fieldsync/internal/cryptox"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// TokenSetter is implemented by API clients that carry a bearer token.
type TokenSetter interface {
	SetToken(token string)
}

// AuthService owns enrollment: device identity, server login and local key
// material setup.
type AuthService struct {
	store  *store.EncryptedStore
	api    client.Client
	crypto *cryptox.Provider
	log    logging.Logger
}

func NewAuthService(st *store.EncryptedStore, api client.Client, crypto *cryptox.Provider, log logging.Logger) *AuthService {
	return &AuthService{store: st, api: api, crypto: crypto, log: log}
}

// EnsureDeviceID returns this installation's stable device identifier,
// generating and persisting one on first call. The id is stored in plaintext
// metadata because it is an input to key derivation.
func (a *AuthService) EnsureDeviceID(ctx context.Context) (string, error) {
	val, err := a.store.Metadata().Get(ctx, metadata.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if len(val) > 0 {
		return string(val), nil
	}

	id := uuid.NewString()
	if err := a.store.Metadata().Set(ctx, metadata.KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	a.log.Info(ctx, "generated device id", "device_id", id)
	return id, nil
}

// Login authenticates against the server, installs the bearer token on the
// API client and initializes encryption for the (user, device) pair. On
// success the enrolled username is recorded so later sessions can detect a
// user switch.
func (a *AuthService) Login(ctx context.Context, username, password string) error {
	deviceID, err := a.EnsureDeviceID(ctx)
	if err != nil {
		return err
	}

	token, err := a.api.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if ts, ok := a.api.(TokenSetter); ok {
		ts.SetToken(token)
	}

	if err := a.crypto.Initialize(username, deviceID); err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}

	if err := a.store.Metadata().Set(ctx, metadata.KeyEnrolledUser, []byte(username)); err != nil {
		return fmt.Errorf("failed to record enrolled user: %w", err)
	}

	a.log.Info(ctx, "login successful", "user", username, "device_id", deviceID)
	return nil
}

// EnrolledUser returns the username recorded at last login, or "" when the
// device has never enrolled.
func (a *AuthService) EnrolledUser(ctx context.Context) (string, error) {
	val, err := a.store.Metadata().Get(ctx, metadata.KeyEnrolledUser)
	if err != nil {
		return "", err
	}
	return string(val), nil
}
