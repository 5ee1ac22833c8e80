// Package redis stores workspace graphs as JSON documents in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/meikuraledutech/blockpipe"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "blockpipe:graph:"

// Store implements blockpipe.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ blockpipe.Store = (*Store)(nil)

type Option func(*Store)

// WithTTL sets the expiration for saved graphs. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(graphID string) string {
	return s.prefix + graphID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// CreateSchema checks connectivity; Redis needs no schema.
func (s *Store) CreateSchema(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("blockpipe: redis ping: %w", err)
	}
	return nil
}

// DropSchema deletes every graph under the prefix.
func (s *Store) DropSchema(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("blockpipe: redis index: %w", err)
	}
	keys := []string{s.indexKey()}
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("blockpipe: redis drop: %w", err)
	}
	return nil
}

// SaveGraph writes the document and indexes its id in one pipeline.
func (s *Store) SaveGraph(ctx context.Context, g *blockpipe.Graph) (*blockpipe.Graph, error) {
	if err := g.Prepare(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("blockpipe: marshal graph: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(g.ID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), g.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("blockpipe: save to redis: %w", err)
	}
	return g, nil
}

// GetGraph returns nil, nil for unknown or expired graphs.
func (s *Store) GetGraph(ctx context.Context, graphID string) (*blockpipe.Graph, error) {
	data, err := s.client.Get(ctx, s.key(graphID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("blockpipe: load from redis: %w", err)
	}
	var g blockpipe.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("blockpipe: unmarshal graph: %w", err)
	}
	return &g, nil
}

func (s *Store) DeleteGraph(ctx context.Context, graphID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(graphID))
	pipe.SRem(ctx, s.indexKey(), graphID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("blockpipe: delete from redis: %w", err)
	}
	return nil
}

// ListGraphs returns the indexed ids whose documents still exist. Ids of
// expired documents are pruned from the index on the way.
func (s *Store) ListGraphs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("blockpipe: redis index: %w", err)
	}
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("blockpipe: redis exists: %w", err)
		}
		if n == 0 {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		live = append(live, id)
	}
	sort.Strings(live)
	return live, nil
}
