// Package filecache persists the local cache to a JSON file.
package filecache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/irdesk/go-client/cache"
)

var _ cache.Local = (*FileCache)(nil)

type FileCache struct {
	path string

	lock    sync.Mutex
	entries map[string]string
}

func New(path string) (*FileCache, error) {
	if path == "" {
		return nil, errors.New("[filecache.New] path is required")
	}

	fc := &FileCache{path: path, entries: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "[filecache.New] os.ReadFile")
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fc.entries); err != nil {
			return nil, errors.Wrap(err, "[filecache.New] json.Unmarshal")
		}
	}
	return fc, nil
}

func (fc *FileCache) Get(key string) (string, bool) {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	value, ok := fc.entries[key]
	return value, ok
}

func (fc *FileCache) Set(key, value string) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	fc.entries[key] = value
	return fc.persist()
}

func (fc *FileCache) Delete(key string) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	if _, ok := fc.entries[key]; !ok {
		return nil
	}
	delete(fc.entries, key)
	return fc.persist()
}

func (fc *FileCache) persist() error {
	raw, err := json.MarshalIndent(fc.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}
	if err := os.MkdirAll(filepath.Dir(fc.path), 0o700); err != nil {
		return errors.Wrap(err, "os.MkdirAll")
	}
	tmp := fc.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "os.WriteFile")
	}
	return errors.Wrap(os.Rename(tmp, fc.path), "os.Rename")
}
