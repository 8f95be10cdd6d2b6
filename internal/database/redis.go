package database

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown or expired
	ErrSessionNotFound = errors.New("session not found")
	// ErrStateMismatch is returned when an OAuth state token was never issued or already used
	ErrStateMismatch = errors.New("oauth state not found")
)

const oauthStateTTL = 5 * time.Minute

// RedisClient wraps the redis client
type RedisClient struct {
	*redis.Client
	logger *log.Logger
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// NewRedisClient creates a new Redis client and pings it
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *log.Logger) (*RedisClient, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping Redis: %w", err)
	}

	logger.Println("Connected to Redis")

	return &RedisClient{Client: client, logger: logger}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r.Client != nil {
		r.logger.Println("Closing Redis connection")
		return r.Client.Close()
	}
	return nil
}

// Health checks the Redis connection health
func (r *RedisClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return r.Ping(ctx).Err()
}

// SessionStore maps opaque session ids to user ids in Redis
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a new session store
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		client: client,
		ttl:    ttl,
	}
}

// TTL is how long an idle session lives
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// GenerateSessionID generates a cryptographically secure session ID
func (s *SessionStore) GenerateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func stateKey(state string) string {
	return "oauth_state:" + state
}

// Create issues a new session for the user and returns its id
func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	sessionID, err := s.GenerateSessionID()
	if err != nil {
		return "", err
	}
	if err := s.Set(ctx, sessionID, userID); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Set stores a user ID in a session
func (s *SessionStore) Set(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if err := s.client.Set(ctx, sessionKey(sessionID), userID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get retrieves a user ID from a session and refreshes its TTL
func (s *SessionStore) Get(ctx context.Context, sessionID string) (uuid.UUID, error) {
	key := sessionKey(sessionID)

	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get session: %w", err)
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in session: %w", err)
	}

	s.client.Expire(ctx, key, s.ttl)

	return userID, nil
}

// Delete removes a session
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}

// NewState issues a single-use OAuth state token
func (s *SessionStore) NewState(ctx context.Context) (string, error) {
	state, err := s.GenerateSessionID()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, stateKey(state), "1", oauthStateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}
	return state, nil
}

// ConsumeState validates and invalidates an OAuth state token
func (s *SessionStore) ConsumeState(ctx context.Context, state string) error {
	if state == "" {
		return ErrStateMismatch
	}
	err := s.client.GetDel(ctx, stateKey(state)).Err()
	if errors.Is(err, redis.Nil) {
		return ErrStateMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to check oauth state: %w", err)
	}
	return nil
}
