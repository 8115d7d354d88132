// Package credential keeps the notifier's secrets in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

const serviceName = "notifier"

// Keys under which the notifier keeps its secrets.
const (
	SessionToken = "session-token"
	SigningKey   = "signing-key"
	MongoURI     = "mongo-uri"
)

// ErrNotFound is returned by Get when no secret is stored under the key.
var ErrNotFound = errors.New("credential not found")

// Vault reads and writes secrets. The keyring is opened on first use.
type Vault struct {
	open func() (keyring.Keyring, error)

	once sync.Once
	ring keyring.Keyring
	err  error
}

// NewVault returns a Vault over the system keyring. The file backend,
// used when no system keyring is available, keeps its files under fileDir.
func NewVault(fileDir string) *Vault {
	return &Vault{open: func() (keyring.Keyring, error) {
		return keyring.Open(keyring.Config{
			ServiceName: serviceName,
			AllowedBackends: []keyring.BackendType{
				keyring.KeychainBackend,
				keyring.SecretServiceBackend,
				keyring.WinCredBackend,
				keyring.PassBackend,
				keyring.FileBackend,
			},
			FileDir:                  fileDir,
			FilePasswordFunc:         keyring.FixedStringPrompt("notifier-file-key"),
			KeychainTrustApplication: true,
		})
	}}
}

// NewVaultWith returns a Vault over ring.
func NewVaultWith(ring keyring.Keyring) *Vault {
	return &Vault{open: func() (keyring.Keyring, error) { return ring, nil }}
}

func (v *Vault) openOnce() (keyring.Keyring, error) {
	v.once.Do(func() {
		v.ring, v.err = v.open()
		if v.err != nil {
			v.err = fmt.Errorf("opening keyring: %w", v.err)
		}
	})
	return v.ring, v.err
}

// Get retrieves the secret stored under key.
func (v *Vault) Get(key string) (string, error) {
	ring, err := v.openOnce()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores value under key, replacing any previous value.
func (v *Vault) Set(key string, value string) error {
	ring, err := v.openOnce()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       "notifier " + key,
		Description: "notifier credential",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes the secret under key. Removing a missing key succeeds.
func (v *Vault) Delete(key string) error {
	ring, err := v.openOnce()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
