package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/internal/auth/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

const (
	// Redis key prefixes for session data
	sessionKeyPrefix        = "session:"
	accountSessionKeyPrefix = "account_sessions:"

	// defaultSessionTTL is the fallback TTL when session expiry cannot be
	// determined.
	defaultSessionTTL = 24 * time.Hour
)

// sessionJSON is the JSON-serializable representation of a Session.
// Timestamps travel as Unix nanos so round-trips lose no precision.
type sessionJSON struct {
	ID         string `json:"id"`
	Account    string `json:"account"`
	CreatedAt  int64  `json:"created_at"`
	ExpiresAt  int64  `json:"expires_at"`
	Active     bool   `json:"active"`
	DeviceName string `json:"device_name,omitempty"`
}

func sessionToJSON(s *models.Session) *sessionJSON {
	return &sessionJSON{
		ID:         s.ID.String(),
		Account:    s.Account.String(),
		CreatedAt:  s.CreatedAt.UnixNano(),
		ExpiresAt:  s.ExpiresAt.UnixNano(),
		Active:     s.Active,
		DeviceName: s.DeviceName,
	}
}

func sessionFromJSON(j *sessionJSON) (*models.Session, error) {
	sessionID, err := id.ParseSessionID(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	return &models.Session{
		ID:         sessionID,
		Account:    id.AccountID(j.Account),
		CreatedAt:  time.Unix(0, j.CreatedAt),
		ExpiresAt:  time.Unix(0, j.ExpiresAt),
		Active:     j.Active,
		DeviceName: j.DeviceName,
	}, nil
}

// RedisStore persists sessions in Redis. TTLs derive from session expiry so
// Redis evicts dead sessions on its own; revoked sessions keep their key
// until then so revocation stays observable.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (s *RedisStore) accountKey(account id.AccountID) string {
	return accountSessionKeyPrefix + account.String()
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	data, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	key := s.sessionKey(session.ID)
	accountKey := s.accountKey(session.Account)

	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, accountKey, session.ID.String())
	pipe.Expire(ctx, accountKey, ttl+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	var j sessionJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sessionFromJSON(&j)
}

func (s *RedisStore) Update(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	key := s.sessionKey(session.ID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check session exists: %w", err)
	}
	if exists == 0 {
		return sentinel.ErrNotFound
	}

	data, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		if remaining := time.Until(session.ExpiresAt); remaining > 0 {
			ttl = remaining
		} else {
			ttl = defaultSessionTTL
		}
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *RedisStore) ListByAccount(ctx context.Context, account id.AccountID) ([]*models.Session, error) {
	accountKey := s.accountKey(account)
	sessionIDs, err := s.client.SMembers(ctx, accountKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}
	if len(sessionIDs) == 0 {
		return []*models.Session{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(sessionIDs))
	for i, sid := range sessionIDs {
		cmds[i] = pipe.Get(ctx, sessionKeyPrefix+sid)
	}
	// Some keys may have expired between SMembers and the pipeline; their
	// GETs fail individually and are skipped below.
	_, _ = pipe.Exec(ctx)

	sessions := make([]*models.Session, 0, len(sessionIDs))
	var stale []any
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, sessionIDs[i])
			continue
		}
		if err != nil {
			continue
		}
		var j sessionJSON
		if err := json.Unmarshal([]byte(data), &j); err != nil {
			continue
		}
		session, err := sessionFromJSON(&j)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}

	if len(stale) > 0 {
		s.client.SRem(ctx, accountKey, stale...)
	}
	return sessions, nil
}
