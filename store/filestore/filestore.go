// Package filestore persists store entries to a single JSON jar file,
// optionally sealed at rest with a passphrase-derived key.
package filestore

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/irdesk/go-client/store"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var sealedMagic = []byte("IRDESKBOX1")

type entry struct {
	Value     string         `json:"value"`
	ExpiresAt time.Time      `json:"expires_at,omitempty"`
	Path      string         `json:"path,omitempty"`
	Secure    bool           `json:"secure,omitempty"`
	SameSite  store.SameSite `json:"same_site,omitempty"`
}

type jarFile struct {
	Entries map[string]entry `json:"entries"`
}

// FileStore is a durable store backed by a jar file on disk. Every mutation
// rewrites the file atomically (write to temp, rename).
type FileStore struct {
	path       string
	passphrase []byte
	nowTime    func() time.Time

	lock    sync.Mutex
	entries map[string]entry
}

var _ store.Store = (*FileStore)(nil)

type Option func(*FileStore)

// WithEncryption seals the jar file at rest using a key derived from the
// passphrase with scrypt.
func WithEncryption(passphrase string) Option {
	return func(fs *FileStore) {
		fs.passphrase = []byte(passphrase)
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(fs *FileStore) {
		fs.nowTime = nowFunc
	}
}

// New opens or creates the jar file at path.
func New(path string, options ...Option) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[filestore.New] path is required")
	}

	fs := &FileStore{
		path:    path,
		nowTime: time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range options {
		opt(fs)
	}

	if err := fs.load(); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] load")
	}
	return fs, nil
}

func (fs *FileStore) Set(name, value string, attrs store.Attributes) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	e := entry{
		Value:    value,
		Path:     attrs.Path,
		Secure:   attrs.Secure,
		SameSite: attrs.SameSite,
	}
	if attrs.MaxAge > 0 {
		e.ExpiresAt = fs.nowTime().Add(attrs.MaxAge)
	}
	fs.entries[name] = e

	return fs.persist()
}

func (fs *FileStore) Get(name string) (string, bool, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	e, ok := fs.entries[name]
	if !ok {
		return "", false, nil
	}
	if !e.ExpiresAt.IsZero() && fs.nowTime().After(e.ExpiresAt) {
		delete(fs.entries, name)
		if err := fs.persist(); err != nil {
			return "", false, errors.Wrap(err, "[FileStore.Get] prune expired")
		}
		return "", false, nil
	}
	return e.Value, true, nil
}

func (fs *FileStore) Delete(name string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if _, ok := fs.entries[name]; !ok {
		return nil
	}
	delete(fs.entries, name)
	return fs.persist()
}

func (fs *FileStore) load() error {
	raw, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "os.ReadFile")
	}
	if len(raw) == 0 {
		return nil
	}

	if isSealed(raw) {
		raw, err = fs.unseal(raw)
		if err != nil {
			return errors.Wrap(err, "unseal")
		}
	}

	var jar jarFile
	if err := json.Unmarshal(raw, &jar); err != nil {
		return errors.Wrap(err, "json.Unmarshal")
	}
	if jar.Entries != nil {
		fs.entries = jar.Entries
	}
	return nil
}

func (fs *FileStore) persist() error {
	raw, err := json.MarshalIndent(jarFile{Entries: fs.entries}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}

	if len(fs.passphrase) > 0 {
		raw, err = fs.seal(raw)
		if err != nil {
			return errors.Wrap(err, "seal")
		}
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "os.MkdirAll")
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "os.WriteFile")
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return errors.Wrap(err, "os.Rename")
	}
	return nil
}

// Sealed file layout: magic | salt | nonce | secretbox.
func (fs *FileStore) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "rand.Read salt")
	}
	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(err, "rand.Read nonce")
	}

	key, err := fs.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(sealedMagic)+saltLength+nonceLength+len(plaintext)+secretbox.Overhead)
	out = append(out, sealedMagic...)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, key), nil
}

func (fs *FileStore) unseal(raw []byte) ([]byte, error) {
	header := len(sealedMagic) + saltLength + nonceLength
	if len(raw) < header+secretbox.Overhead {
		return nil, errors.New("sealed jar file truncated")
	}
	if len(fs.passphrase) == 0 {
		return nil, errors.New("jar file is sealed but no passphrase configured")
	}

	salt := raw[len(sealedMagic) : len(sealedMagic)+saltLength]
	var nonce [nonceLength]byte
	copy(nonce[:], raw[len(sealedMagic)+saltLength:header])

	key, err := fs.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	plaintext, ok := secretbox.Open(nil, raw[header:], &nonce, key)
	if !ok {
		return nil, errors.New("jar file could not be opened with the configured passphrase")
	}
	return plaintext, nil
}

func (fs *FileStore) deriveKey(salt []byte) (*[keyLength]byte, error) {
	derived, err := scrypt.Key(fs.passphrase, salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, errors.Wrap(err, "scrypt.Key")
	}
	var key [keyLength]byte
	copy(key[:], derived)
	return &key, nil
}

func isSealed(raw []byte) bool {
	if len(raw) < len(sealedMagic) {
		return false
	}
	for i, b := range sealedMagic {
		if raw[i] != b {
			return false
		}
	}
	return true
}
