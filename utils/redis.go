package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"autonomeal/models"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 5 * time.Second

// OpenRedisPool initializes a Redis connection pool
func OpenRedisPool(ctx context.Context, dsn string) (*redis.Client, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis dsn: %w", err)
	}

	// Configure connection pooling
	opt.PoolSize = 100
	opt.MinIdleConns = 2
	opt.DialTimeout = 5 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err = client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func sessionKey(id string) string {
	return "session:" + id
}

func userSessionsKey(username string) string {
	return "user_sessions:" + username
}

// RedisSessionStore keeps sessions as redis hashes that expire with the session.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// Save writes the session and sets its expiry.
func (s *RedisSessionStore) Save(ctx context.Context, session *models.Session) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}

	sessionMap := map[string]any{
		"username":      session.Username,
		"created_at":    session.CreatedAt.Format(time.RFC3339),
		"expires_at":    session.ExpiresAt.Format(time.RFC3339),
		"last_activity": session.LastActivity.Format(time.RFC3339),
		"user_agent":    session.UserAgent,
		"ip_address":    session.IPAddress,
		"permanent":     strconv.FormatBool(session.Permanent),
	}

	key := sessionKey(session.ID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, sessionMap)
	pipe.Expire(ctx, key, ttl)
	if session.Username != "" {
		// Add to the user's session index
		pipe.SAdd(ctx, userSessionsKey(session.Username), key)
		pipe.Expire(ctx, userSessionsKey(session.Username), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get returns the session or ErrNotFound when it is missing or expired.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	data, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	session := &models.Session{
		ID:        id,
		Username:  data["username"],
		UserAgent: data["user_agent"],
		IPAddress: data["ip_address"],
	}
	session.Permanent, _ = strconv.ParseBool(data["permanent"])
	session.CreatedAt, _ = time.Parse(time.RFC3339, data["created_at"])
	session.LastActivity, _ = time.Parse(time.RFC3339, data["last_activity"])
	session.ExpiresAt, err = time.Parse(time.RFC3339, data["expires_at"])
	if err != nil || !time.Now().Before(session.ExpiresAt) {
		return nil, ErrNotFound
	}

	return session, nil
}

// Delete removes a single session and its reference in the user index
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	key := sessionKey(id)
	username, err := s.client.HGet(ctx, key, "username").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("load session owner: %w", err)
	}
	if username != "" {
		if err := s.client.SRem(ctx, userSessionsKey(username), key).Err(); err != nil {
			return fmt.Errorf("unindex session: %w", err)
		}
	}

	return s.client.Del(ctx, key).Err()
}

// Touch updates the last activity timestamp of a session
func (s *RedisSessionStore) Touch(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	return s.client.HSet(ctx, sessionKey(id), "last_activity", time.Now().Format(time.RFC3339)).Err()
}

// CountUserSessions returns the number of live sessions indexed for a user.
func (s *RedisSessionStore) CountUserSessions(ctx context.Context, username string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	return s.client.SCard(ctx, userSessionsKey(username)).Result()
}

func transcriptKey(conversationID string) string {
	return "transcript:" + conversationID
}

// RedisTranscriptStore keeps each conversation as a redis list of JSON turns.
type RedisTranscriptStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTranscriptStore builds a store whose transcripts expire ttl after
// their last append. A zero ttl keeps them forever.
func NewRedisTranscriptStore(client *redis.Client, ttl time.Duration) *RedisTranscriptStore {
	return &RedisTranscriptStore{client: client, ttl: ttl}
}

func (s *RedisTranscriptStore) Append(ctx context.Context, conversationID string, turn models.Turn) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	raw, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}

	key := transcriptKey(conversationID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *RedisTranscriptStore) Turns(ctx context.Context, conversationID string) ([]models.Turn, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	raw, err := s.client.LRange(ctx, transcriptKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	turns := make([]models.Turn, 0, len(raw))
	for _, item := range raw {
		var turn models.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisTranscriptStore) Delete(ctx context.Context, conversationID string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	return s.client.Del(ctx, transcriptKey(conversationID)).Err()
}
