// Package rediscache wraps a DocumentStore with a Redis read-through,
// write-through cache of the encoded document.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/store"
)

const defaultKey = "ysocial:document"

type Store struct {
	client     *redis.Client
	persistent store.DocumentStore
	ttl        time.Duration
	key        string
	logger     *slog.Logger
}

var _ store.DocumentStore = (*Store)(nil)

func New(client *redis.Client, persistent store.DocumentStore, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:     client,
		persistent: persistent,
		ttl:        ttl,
		key:        defaultKey,
		logger:     logger,
	}
}

// Dial connects to addr and wraps persistent.
func Dial(ctx context.Context, addr string, persistent store.DocumentStore, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return New(client, persistent, ttl, logger), nil
}

func (s *Store) Load(ctx context.Context) (model.Document, error) {
	if doc, ok := s.load(ctx); ok {
		return doc, nil
	}
	doc, err := s.persistent.Load(ctx)
	if err != nil {
		return doc, err
	}
	s.store(ctx, doc)
	return doc, nil
}

func (s *Store) Save(ctx context.Context, doc model.Document) error {
	if err := s.persistent.Save(ctx, doc); err != nil {
		s.invalidate(ctx)
		return err
	}
	s.store(ctx, doc)
	return nil
}

func (s *Store) Close() error {
	cerr := s.client.Close()
	return errors.Join(s.persistent.Close(), cerr)
}

func (s *Store) load(ctx context.Context) (model.Document, bool) {
	result, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Document{}, false
	}
	if err != nil {
		s.logger.Warn("document cache read failed", slog.String("error", err.Error()))
		return model.Document{}, false
	}
	var doc model.Document
	if err := json.Unmarshal(result, &doc); err != nil {
		s.logger.Warn("document cache entry corrupt", slog.String("error", err.Error()))
		s.invalidate(ctx)
		return model.Document{}, false
	}
	doc.Normalize()
	return doc, true
}

func (s *Store) store(ctx context.Context, doc model.Document) {
	value, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("document cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := s.client.Set(ctx, s.key, value, s.ttl).Err(); err != nil {
		s.logger.Warn("document cache write failed", slog.String("error", err.Error()))
	}
}

func (s *Store) invalidate(ctx context.Context) {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		s.logger.Warn("document cache invalidate failed", slog.String("error", err.Error()))
	}
}
