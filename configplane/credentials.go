package configplane

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EncryptedCredential is the at-rest form of an API credential: AES-256-GCM
// ciphertext plus nonce, both base64-encoded for YAML storage.
type EncryptedCredential struct {
	Ciphertext string `yaml:"ciphertext" json:"-"`
	Nonce      string `yaml:"nonce" json:"-"`
}

// CredentialVault decrypts credentials on demand and caches the cleartext
// for a bounded time, per spec §4.6: the LLM router caches decrypted
// credentials for ~5 minutes and refreshes on expiry or explicit
// invalidation. No library in the pack handles symmetric at-rest
// encryption; crypto/aes + crypto/cipher (stdlib GCM) is the standard way
// to do this in Go and nothing in the examples does it differently.
type CredentialVault struct {
	mu     sync.Mutex
	store  Store
	key    [32]byte
	ttl    time.Duration
	cached map[string]cachedCredential
	logger *zap.Logger
}

type cachedCredential struct {
	plaintext string
	expiresAt time.Time
}

// NewCredentialVault builds a vault backed by store, decrypting with key
// (must be 32 bytes for AES-256) and caching cleartext for ttl.
func NewCredentialVault(store Store, key [32]byte, ttl time.Duration, logger *zap.Logger) *CredentialVault {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CredentialVault{
		store:  store,
		key:    key,
		ttl:    ttl,
		cached: make(map[string]cachedCredential),
		logger: logger.With(zap.String("component", "credential_vault")),
	}
}

// Get returns the cleartext credential named name, decrypting and caching
// it on a cache miss or expiry.
func (v *CredentialVault) Get(name string) (string, error) {
	v.mu.Lock()
	if entry, ok := v.cached[name]; ok && time.Now().Before(entry.expiresAt) {
		v.mu.Unlock()
		return entry.plaintext, nil
	}
	v.mu.Unlock()

	enc, ok, err := v.store.Credential(name)
	if err != nil {
		return "", fmt.Errorf("configplane: load credential %q: %w", name, err)
	}
	if !ok {
		return "", fmt.Errorf("configplane: credential %q not configured", name)
	}

	plaintext, err := v.decrypt(enc)
	if err != nil {
		return "", fmt.Errorf("configplane: decrypt credential %q: %w", name, err)
	}

	v.mu.Lock()
	v.cached[name] = cachedCredential{plaintext: plaintext, expiresAt: time.Now().Add(v.ttl)}
	v.mu.Unlock()

	v.logger.Debug("credential decrypted and cached", zap.String("name", name))
	return plaintext, nil
}

// Invalidate evicts a cached credential immediately, forcing the next Get
// to decrypt fresh — used by the push-invalidation admin endpoint.
func (v *CredentialVault) Invalidate(name string) {
	v.mu.Lock()
	delete(v.cached, name)
	v.mu.Unlock()
}

// InvalidateAll clears the entire decrypted-credential cache.
func (v *CredentialVault) InvalidateAll() {
	v.mu.Lock()
	v.cached = make(map[string]cachedCredential)
	v.mu.Unlock()
}

func (v *CredentialVault) decrypt(enc EncryptedCredential) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(enc.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(enc.Nonce)
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}

	block, err := aes.NewCipher(v.key[:])
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("authenticate/decrypt: %w", err)
	}
	return string(plaintext), nil
}

// EncryptCredential is the admin-side counterpart to decrypt: it produces
// the at-rest form a credential is written to the store as. Exported for
// the admin tooling and for tests.
func EncryptCredential(key [32]byte, plaintext string) (EncryptedCredential, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return EncryptedCredential{}, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return EncryptedCredential{}, fmt.Errorf("init gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return EncryptedCredential{}, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return EncryptedCredential{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
	}, nil
}
