package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"carrierhub/pkg/logger"
	"carrierhub/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

const (
	KeyUserToken    = "token"
	KeyUserProfile  = "user"
	KeyAdminToken   = "adminToken"
	KeyAdminProfile = "admin"
)

var ErrEmptyToken = errors.New("session: token must not be empty")

type pair struct {
	name       string
	tokenKey   string
	profileKey string
}

var (
	userPair  = pair{name: "user", tokenKey: KeyUserToken, profileKey: KeyUserProfile}
	adminPair = pair{name: "admin", tokenKey: KeyAdminToken, profileKey: KeyAdminProfile}
)

// Store keeps the user and admin token/profile pairs side by side so one
// session can hold both identities. A profile is only returned when its
// token is usable; a pair that fails that check is removed as a whole.
type Store struct {
	kv  KVStore
	log *logger.Logger
	now func() time.Time
}

func NewStore(kv KVStore, log *logger.Logger) *Store {
	return &Store{kv: kv, log: log, now: time.Now}
}

func (s *Store) SaveUser(ctx context.Context, token string, user model.User) error {
	return s.save(ctx, userPair, token, user)
}

func (s *Store) SaveAdmin(ctx context.Context, token string, admin model.Admin) error {
	return s.save(ctx, adminPair, token, admin)
}

// UserToken returns the bearer token for user calls, or "" when there is
// none or it is unusable.
func (s *Store) UserToken(ctx context.Context) string {
	return s.token(ctx, userPair)
}

func (s *Store) AdminToken(ctx context.Context) string {
	return s.token(ctx, adminPair)
}

func (s *Store) User(ctx context.Context) (*model.User, bool) {
	var user model.User
	if !s.profile(ctx, userPair, &user) {
		return nil, false
	}
	return &user, true
}

func (s *Store) Admin(ctx context.Context) (*model.Admin, bool) {
	var admin model.Admin
	if !s.profile(ctx, adminPair, &admin) {
		return nil, false
	}
	return &admin, true
}

func (s *Store) ClearUser(ctx context.Context) error {
	return s.drop(ctx, userPair)
}

func (s *Store) ClearAdmin(ctx context.Context) error {
	return s.drop(ctx, adminPair)
}

func (s *Store) save(ctx context.Context, p pair, token string, profile any) error {
	if isPlaceholder(token) {
		return ErrEmptyToken
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("session: failed to marshal %s profile: %w", p.name, err)
	}

	if err := s.kv.Set(ctx, p.tokenKey, token); err != nil {
		return fmt.Errorf("session: failed to store %s token: %w", p.name, err)
	}
	if err := s.kv.Set(ctx, p.profileKey, string(data)); err != nil {
		_ = s.kv.Remove(ctx, p.tokenKey)
		return fmt.Errorf("session: failed to store %s profile: %w", p.name, err)
	}
	return nil
}

func (s *Store) token(ctx context.Context, p pair) string {
	token, ok, err := s.kv.Get(ctx, p.tokenKey)
	if err != nil {
		s.log.Warn("Failed to read session token", "pair", p.name, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	if reason := s.unusable(token); reason != "" {
		s.dropWithReason(ctx, p, reason)
		return ""
	}
	return token
}

func (s *Store) profile(ctx context.Context, p pair, out any) bool {
	raw, ok, err := s.kv.Get(ctx, p.profileKey)
	if err != nil {
		s.log.Warn("Failed to read session profile", "pair", p.name, "error", err)
		return false
	}
	if !ok {
		return false
	}

	token, hasToken, err := s.kv.Get(ctx, p.tokenKey)
	if err != nil {
		s.log.Warn("Failed to read session token", "pair", p.name, "error", err)
		return false
	}
	if !hasToken {
		s.dropWithReason(ctx, p, "profile without token")
		return false
	}
	if reason := s.unusable(token); reason != "" {
		s.dropWithReason(ctx, p, reason)
		return false
	}
	if isPlaceholder(raw) {
		s.dropWithReason(ctx, p, "placeholder profile")
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.dropWithReason(ctx, p, "malformed profile")
		return false
	}
	return true
}

// unusable returns why token cannot be sent, or "" if it can. Tokens that
// do not parse as JWTs are treated as opaque and accepted.
func (s *Store) unusable(token string) string {
	if isPlaceholder(token) {
		return "placeholder token"
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return ""
	}
	if !s.now().Before(exp.Time) {
		return "token expired"
	}
	return ""
}

func (s *Store) dropWithReason(ctx context.Context, p pair, reason string) {
	s.log.Info("Dropping session pair", "pair", p.name, "reason", reason)
	if err := s.drop(ctx, p); err != nil {
		s.log.Warn("Failed to drop session pair", "pair", p.name, "error", err)
	}
}

func (s *Store) drop(ctx context.Context, p pair) error {
	return errors.Join(
		s.kv.Remove(ctx, p.tokenKey),
		s.kv.Remove(ctx, p.profileKey),
	)
}

func isPlaceholder(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "undefined", "null":
		return true
	}
	return false
}
