package secrets

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"
)

// AgeEncryptor encrypts and decrypts small payloads with a single X25519
// identity.
type AgeEncryptor struct {
	identity *age.X25519Identity
}

// NewAgeEncryptor loads an age identity from a key file. Lines starting
// with "#" are ignored, matching age-keygen output.
func NewAgeEncryptor(keyPath string) (*AgeEncryptor, error) {
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("open age key: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := age.ParseX25519Identity(line)
		if err != nil {
			return nil, fmt.Errorf("parse age identity: %w", err)
		}
		return &AgeEncryptor{identity: id}, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read age key: %w", err)
	}
	return nil, fmt.Errorf("no age identity found in %s", keyPath)
}

// NewEphemeralEncryptor generates a throwaway identity. Anything encrypted
// with it is unrecoverable after the process exits.
func NewEphemeralEncryptor() (*AgeEncryptor, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate age identity: %w", err)
	}
	return &AgeEncryptor{identity: id}, nil
}

// EnsureKeyFile loads the identity at path, generating and persisting a
// new one if the file does not exist.
func EnsureKeyFile(path string) (*AgeEncryptor, error) {
	if _, err := os.Stat(path); err == nil {
		return NewAgeEncryptor(path)
	}

	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate age identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	content := fmt.Sprintf("# created: %s\n# public key: %s\n%s\n",
		time.Now().Format(time.RFC3339), id.Recipient(), id)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return nil, fmt.Errorf("write age key: %w", err)
	}
	return &AgeEncryptor{identity: id}, nil
}

// Encrypt seals plaintext to the encryptor's own recipient.
func (e *AgeEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, e.identity.Recipient())
	if err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("age write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("age close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decrypt opens a payload sealed by Encrypt.
func (e *AgeEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(ciphertext), e.identity)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("age read: %w", err)
	}
	return plaintext, nil
}
