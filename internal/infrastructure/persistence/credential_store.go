package persistence

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/shared"
	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

// ErrInvalidCredentialKey indicates the configured encryption key has the
// wrong length for AES-256
var ErrInvalidCredentialKey = errors.New("persistence: credential key must be 32 bytes")

// GormCredentialStore implements channel.CredentialStore on the
// provider_credentials table. Payloads are encrypted with AES-256-GCM before
// they touch the database; the domain only ever sees plaintext.
type GormCredentialStore struct {
	db  *gorm.DB
	gcm cipher.AEAD
}

// NewGormCredentialStore creates a credential store with the given AES-256 key
func NewGormCredentialStore(db *gorm.DB, key []byte) (*GormCredentialStore, error) {
	if len(key) != 32 {
		return nil, ErrInvalidCredentialKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &GormCredentialStore{db: db, gcm: gcm}, nil
}

// Get returns the decrypted payload for (user, provider), or
// integration.ErrCredentialMissing when nothing is saved
func (s *GormCredentialStore) Get(ctx context.Context, userID uuid.UUID, providerID string) (string, error) {
	var m models.ProviderCredentialModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider_id = ?", userID, providerID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", integration.ErrCredentialMissing
		}
		return "", err
	}
	return s.decrypt(m.Payload)
}

// Save overwrites the payload for (user, provider)
func (s *GormCredentialStore) Save(ctx context.Context, userID uuid.UUID, providerID string, payload string) error {
	encrypted, err := s.encrypt(payload)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ProviderCredentialModel
		err := tx.Where("user_id = ? AND provider_id = ?", userID, providerID).
			First(&existing).Error
		switch {
		case err == nil:
			existing.Payload = encrypted
			existing.UpdatedAt = time.Now()
			return tx.Save(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			m := &models.ProviderCredentialModel{
				UserID:     userID,
				ProviderID: providerID,
				Payload:    encrypted,
			}
			m.FromDomainBaseEntity(shared.NewBaseEntity())
			return tx.Create(m).Error
		default:
			return err
		}
	})
}

// encrypt seals the payload with a fresh random nonce; the nonce is prefixed
// to the ciphertext and the whole blob is base64 encoded
func (s *GormCredentialStore) encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt reverses encrypt
func (s *GormCredentialStore) decrypt(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode credential payload: %w", err)
	}
	nonceSize := s.gcm.NonceSize()
	if len(blob) < nonceSize {
		return "", errors.New("persistence: credential payload too short")
	}
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential payload: %w", err)
	}
	return string(plaintext), nil
}

// Ensure GormCredentialStore implements channel.CredentialStore
var _ channel.CredentialStore = (*GormCredentialStore)(nil)
