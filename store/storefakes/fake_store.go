package storefakes

import (
	"sync"
	"time"

	"github.com/irdesk/go-client/store"
)

var _ store.Store = (*FakeStore)(nil)

type fakeEntry struct {
	value     string
	expiresAt time.Time
}

// FakeStore is an in-memory store for tests. It counts writes and can be
// told to silently drop them, which is how a browser with cookies disabled
// behaves: Set succeeds but nothing persists.
type FakeStore struct {
	lock    sync.Mutex
	entries map[string]fakeEntry
	nowTime func() time.Time

	WriteCount int
	DropWrites bool
	SetErr     error
	GetErr     error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		entries: make(map[string]fakeEntry),
		nowTime: time.Now,
	}
}

func (fs *FakeStore) Set(name, value string, attrs store.Attributes) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.SetErr != nil {
		return fs.SetErr
	}
	fs.WriteCount++
	if fs.DropWrites {
		return nil
	}

	e := fakeEntry{value: value}
	if attrs.MaxAge > 0 {
		e.expiresAt = fs.nowTime().Add(attrs.MaxAge)
	}
	fs.entries[name] = e
	return nil
}

func (fs *FakeStore) Get(name string) (string, bool, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.GetErr != nil {
		return "", false, fs.GetErr
	}
	e, ok := fs.entries[name]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && fs.nowTime().After(e.expiresAt) {
		delete(fs.entries, name)
		return "", false, nil
	}
	return e.value, true, nil
}

func (fs *FakeStore) Delete(name string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.entries, name)
	return nil
}

// Has reports raw presence without expiry pruning, for assertions.
func (fs *FakeStore) Has(name string) bool {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	_, ok := fs.entries[name]
	return ok
}
