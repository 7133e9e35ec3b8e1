// Package secrets stores backend credentials age-encrypted on disk.
// Schema files reference them by name instead of embedding DSN passwords.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFound indicates the named secret does not exist.
var ErrNotFound = errors.New("secret not found")

// Manager holds a flat name→value secret map, persisted as one
// age-encrypted JSON file.
type Manager struct {
	mu        sync.Mutex
	path      string
	encryptor *AgeEncryptor
}

// NewManager creates a secrets Manager over the given store file.
func NewManager(path string, enc *AgeEncryptor) *Manager {
	return &Manager{path: path, encryptor: enc}
}

// Put encrypts and stores a secret under key, overwriting any prior value.
func (m *Manager) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	secrets, err := m.loadLocked()
	if err != nil {
		return err
	}
	secrets[key] = string(value)
	return m.saveLocked(secrets)
}

// Get decrypts and returns the secret stored under key.
func (m *Manager) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	secrets, err := m.loadLocked()
	if err != nil {
		return nil, err
	}
	val, ok := secrets[key]
	if !ok {
		return nil, fmt.Errorf("secret %q: %w", key, ErrNotFound)
	}
	return []byte(val), nil
}

// List returns all secret names, sorted.
func (m *Manager) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	secrets, err := m.loadLocked()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the secret stored under key.
func (m *Manager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	secrets, err := m.loadLocked()
	if err != nil {
		return err
	}
	if _, ok := secrets[key]; !ok {
		return fmt.Errorf("secret %q: %w", key, ErrNotFound)
	}
	delete(secrets, key)
	return m.saveLocked(secrets)
}

func (m *Manager) loadLocked() (map[string]string, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	plaintext, err := m.encryptor.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("decrypt secrets file: %w", err)
	}
	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("unmarshal secrets: %w", err)
	}
	return secrets, nil
}

func (m *Manager) saveLocked(secrets map[string]string) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}
	encrypted, err := m.encryptor.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt secrets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0700); err != nil {
		return fmt.Errorf("create secrets dir: %w", err)
	}
	if err := os.WriteFile(m.path, encrypted, 0600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	return nil
}
