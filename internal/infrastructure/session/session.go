package session

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/securecookie"

	"github.com/example/dine-composer/internal/internaltypes"
)

const (
	name   = "dinectl_session"
	maxAge = 14 * 24 * time.Hour
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleWaiter   Role = "waiter"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleWaiter, RoleAdmin:
		return r, nil
	case "":
		return RoleCustomer, nil
	}
	return "", internaltypes.Invalid("unknown role %q", s)
}

// Session is what login stores: who the user is and the token the backend issued.
type Session struct {
	UserID   int64     `json:"uid"`
	Role     Role      `json:"role"`
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"iat"`
}

// Store keeps one signed (and, with a block key, encrypted) session in a file.
type Store struct {
	sc   *securecookie.SecureCookie
	path string
}

var ErrNoSession = errors.Mark(errors.New("not logged in"), internaltypes.ErrUnauthorized)

func NewStore(path string, hashKey, blockKey []byte) (*Store, error) {
	if len(hashKey) < 32 {
		return nil, errors.WithHint(
			internaltypes.Invalid("session hash key must be at least 32 bytes"),
			"run `dinectl keys` and export SESSION_HASH_KEY",
		)
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(maxAge.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Store{sc: sc, path: path}, nil
}

func (s *Store) Save(sess Session) error {
	if sess.UserID <= 0 {
		return internaltypes.Invalid("session needs a user id")
	}
	if sess.IssuedAt.IsZero() {
		sess.IssuedAt = time.Now().UTC()
	}
	encoded, err := s.sc.Encode(name, sess)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create session dir")
	}
	return errors.Wrap(os.WriteFile(s.path, []byte(encoded), 0o600), "write session")
}

// Load returns ErrNoSession when there is no file or it no longer verifies.
func (s *Store) Load() (Session, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, errors.Wrap(err, "read session")
	}
	var sess Session
	if err := s.sc.Decode(name, strings.TrimSpace(string(b)), &sess); err != nil {
		return Session{}, errors.Wrap(ErrNoSession, err.Error())
	}
	if sess.UserID <= 0 {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove session")
	}
	return nil
}
