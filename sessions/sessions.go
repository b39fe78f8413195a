// Package sessions owns the authenticated-identity triple: credential
// token, sanitized user profile and access level. Each cell is mirrored to
// a durable store entry on every write, and the triple transitions as a
// unit: a session is either fully present or fully absent.
package sessions

import (
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	errs "github.com/irdesk/go-client/internal/errors"
	"github.com/irdesk/go-client/internal/utils"
	"github.com/irdesk/go-client/store"
	"github.com/irdesk/go-client/token"
	"github.com/irdesk/go-client/users"
)

// Durable entry names for the three session cells.
const (
	TokenEntryName = "token"
	UserEntryName  = "user"
	LevelEntryName = "level"
)

// Store holds the session cells. It implements oauth2.TokenSource so the
// API client can pull the current credential at call time rather than
// capturing it at construction.
type Store struct {
	token *store.Value[string]
	user  *store.Value[users.User]
	level *store.Value[string]
}

var _ oauth2.TokenSource = (*Store)(nil)

// New builds a session store over the durable store. attrs is the shared
// expiry/transport policy for all three entries.
func New(durable store.Store, attrs store.Attributes) (*Store, error) {
	if durable == nil {
		return nil, errors.New("[sessions.New] durable store is required")
	}

	tokenCell, err := store.NewValue[string](durable, TokenEntryName, attrs)
	if err != nil {
		return nil, errors.Wrap(err, "[sessions.New] token cell")
	}
	userCell, err := store.NewValue[users.User](durable, UserEntryName, attrs)
	if err != nil {
		return nil, errors.Wrap(err, "[sessions.New] user cell")
	}
	levelCell, err := store.NewValue[string](durable, LevelEntryName, attrs)
	if err != nil {
		return nil, errors.Wrap(err, "[sessions.New] level cell")
	}

	return &Store{token: tokenCell, user: userCell, level: levelCell}, nil
}

// AccessToken returns the raw credential token, or "" when anonymous.
func (s *Store) AccessToken() string {
	return utils.Value(s.token.Get())
}

// User returns the sanitized profile, or nil when anonymous.
func (s *Store) User() *users.User {
	return s.user.Get()
}

// Level returns the access level, or "" when unset.
func (s *Store) Level() string {
	return utils.Value(s.level.Get())
}

// IsAuthenticated reports whether a credential token is present.
func (s *Store) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// SetSession establishes the session in one step: token and profile are
// written together so no caller can observe one without the other. The
// level cell is only assigned when the backend provided one.
func (s *Store) SetSession(accessToken string, user *users.User, level string) error {
	if accessToken == "" {
		return errors.New("[Store.SetSession] access token is required")
	}
	if user == nil {
		return errors.New("[Store.SetSession] user is required")
	}

	if err := s.token.Set(utils.Ptr(accessToken)); err != nil {
		return errors.Wrap(err, "[Store.SetSession] token")
	}
	if err := s.user.Set(user); err != nil {
		return errors.Wrap(err, "[Store.SetSession] user")
	}
	if level != "" {
		if err := s.level.Set(utils.Ptr(level)); err != nil {
			return errors.Wrap(err, "[Store.SetSession] level")
		}
	}
	return nil
}

// SetUser overwrites the stored profile without touching the credential.
// Used by profile refresh, which must never tear down a live session.
func (s *Store) SetUser(user *users.User) error {
	if user == nil {
		return errors.New("[Store.SetUser] user is required")
	}
	return errors.Wrap(s.user.Set(user), "[Store.SetUser]")
}

// Clear drops all three cells, in memory and durably. It is the rollback
// path for a failed session birth and the whole of logout's session work.
func (s *Store) Clear() error {
	var firstErr error
	for _, clear := range []func() error{s.token.Clear, s.user.Clear, s.level.Clear} {
		if err := clear(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return errors.Wrap(firstErr, "[Store.Clear]")
}

// TokenDurablyPresent re-reads the durable store and reports whether the
// credential entry actually persisted. Guards against stores that silently
// drop writes (disabled cookies, ITP-style eviction).
func (s *Store) TokenDurablyPresent() (bool, error) {
	present, err := s.token.DurablePresent()
	return present, errors.Wrap(err, "[Store.TokenDurablyPresent]")
}

// Token implements oauth2.TokenSource over the current session state.
func (s *Store) Token() (*oauth2.Token, error) {
	raw := s.AccessToken()
	if raw == "" {
		return nil, errs.ErrNoSession
	}
	return &oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
		Expiry:      token.Expiry(raw),
	}, nil
}
