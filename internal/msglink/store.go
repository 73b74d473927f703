// Package msglink persists the mapping from chat message IDs to the
// orders their messages created, so a reply to an order-creation message
// can be linked back to the order without a phone lookup.
package msglink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no candidate key maps to an order.
var ErrNotFound = errors.New("msglink: no order for message id")

const keyPrefix = "msglink:"

// Store is a redis-backed messageID -> orderID map. Chat transports have
// shipped several ID formats over time (serialized, remote, bare), so
// Resolve accepts every representation the caller has and additionally
// tries the last path segment of each.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	if client == nil {
		panic("msglink: redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

// Record remembers that messageID created order orderID.
func (s *Store) Record(ctx context.Context, messageID string, orderID uuid.UUID) error {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return nil
	}
	if err := s.client.Set(ctx, keyPrefix+messageID, orderID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("msglink: record %s: %w", messageID, err)
	}
	return nil
}

// Resolve tries each candidate ID in order, then the last path segment of
// each, and returns the first order ID found.
func (s *Store) Resolve(ctx context.Context, candidates ...string) (uuid.UUID, error) {
	tried := make(map[string]struct{})
	keys := make([]string, 0, len(candidates)*2)
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := tried[id]; ok {
			return
		}
		tried[id] = struct{}{}
		keys = append(keys, id)
	}
	for _, id := range candidates {
		add(id)
	}
	for _, id := range candidates {
		add(lastPathSegment(id))
	}

	for _, key := range keys {
		val, err := s.client.Get(ctx, keyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("msglink: resolve %s: %w", key, err)
		}
		orderID, err := uuid.Parse(val)
		if err != nil {
			return uuid.Nil, fmt.Errorf("msglink: corrupt order id for %s: %w", key, err)
		}
		return orderID, nil
	}
	return uuid.Nil, ErrNotFound
}

// lastPathSegment extracts the trailing segment of underscore- or
// slash-delimited message IDs (e.g. "true_12345_ABCDEF" -> "ABCDEF").
func lastPathSegment(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	for _, sep := range []string{"_", "/"} {
		if idx := strings.LastIndex(id, sep); idx >= 0 && idx < len(id)-1 {
			return id[idx+1:]
		}
	}
	return ""
}
