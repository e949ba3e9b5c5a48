// Package store keeps finished reports and conversation turns in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cryptoanalyst/internal/compiler"
)

const (
	reportPrefix  = "report:"
	symbolPrefix  = "reports:"
	sessionPrefix = "conversation:"

	// maxIndexed caps the per-symbol index and per-session history
	maxIndexed = 100
)

// ErrNotFound is returned when a report does not exist or has expired
var ErrNotFound = errors.New("store: not found")

// Message is one conversation turn
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ReportID  string    `json:"report_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore implements report and conversation storage using Redis
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a new Redis-backed store. ttl <= 0 keeps entries forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis: client,
		ttl:   ttl,
	}
}

// Connect creates a client for addr and verifies it answers
func Connect(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return NewRedisStore(client, ttl), nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

// SaveReport stores the report and indexes it under its symbol
func (s *RedisStore) SaveReport(ctx context.Context, report *compiler.AnalysisReport) error {
	if report == nil || report.ID == "" {
		return errors.New("store: report has no id")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	indexKey := symbolPrefix + strings.ToUpper(report.Price.Symbol)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reportPrefix+report.ID, data, s.ttl)
		pipe.LPush(ctx, indexKey, report.ID)
		pipe.LTrim(ctx, indexKey, 0, maxIndexed-1)
		if s.ttl > 0 {
			pipe.Expire(ctx, indexKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ID, err)
	}

	return nil
}

// GetReport retrieves a report by id
func (s *RedisStore) GetReport(ctx context.Context, id string) (*compiler.AnalysisReport, error) {
	data, err := s.redis.Get(ctx, reportPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	var report compiler.AnalysisReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}

	return &report, nil
}

// RecentReports returns up to n reports for symbol, newest first.
// Index entries whose report has expired are skipped.
func (s *RedisStore) RecentReports(ctx context.Context, symbol string, n int) ([]*compiler.AnalysisReport, error) {
	if n <= 0 {
		return []*compiler.AnalysisReport{}, nil
	}

	ids, err := s.redis.LRange(ctx, symbolPrefix+strings.ToUpper(symbol), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for %s: %w", symbol, err)
	}

	reports := make([]*compiler.AnalysisReport, 0, len(ids))
	for _, id := range ids {
		report, err := s.GetReport(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// AppendMessage adds a turn to a session's history
func (s *RedisStore) AppendMessage(ctx context.Context, session string, msg Message) error {
	if session == "" {
		return errors.New("store: session id is empty")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := sessionPrefix + session
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -maxIndexed, -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append message to %s: %w", session, err)
	}

	return nil
}

// History returns the last n turns of a session, oldest first
func (s *RedisStore) History(ctx context.Context, session string, n int) ([]Message, error) {
	if n <= 0 {
		return []Message{}, nil
	}

	raw, err := s.redis.LRange(ctx, sessionPrefix+session, int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", session, err)
	}

	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
