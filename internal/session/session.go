// Package session хранит состояние открытого мастера пользователя между событиями.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/magabrotheeeer/quiz-access-bot/internal/cache"
)

// Store — хранилище сессий по идентификатору пользователя.
type Store[T any] interface {
	Get(ctx context.Context, userID int64) (T, bool, error)
	Set(ctx context.Context, userID int64, value T) error
	Clear(ctx context.Context, userID int64) error
}

// MemoryStore хранит сессии в памяти процесса.
type MemoryStore[T any] struct {
	mu   sync.RWMutex
	data map[int64]T
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{data: make(map[int64]T)}
}

// Get возвращает сессию пользователя.
func (s *MemoryStore[T]) Get(_ context.Context, userID int64) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[userID]
	return v, ok, nil
}

// Set заменяет сессию пользователя целиком.
func (s *MemoryStore[T]) Set(_ context.Context, userID int64, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = value
	return nil
}

// Clear удаляет сессию.
func (s *MemoryStore[T]) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

// RedisStore хранит сессии в Redis в виде JSON без срока жизни.
type RedisStore[T any] struct {
	cache  *cache.Cache
	prefix string
}

// NewRedisStore создаёт хранилище с ключами вида <prefix>:<userID>.
func NewRedisStore[T any](c *cache.Cache, prefix string) *RedisStore[T] {
	return &RedisStore[T]{cache: c, prefix: prefix}
}

func (s *RedisStore[T]) key(userID int64) string {
	return s.prefix + ":" + strconv.FormatInt(userID, 10)
}

// Get возвращает сессию пользователя.
func (s *RedisStore[T]) Get(ctx context.Context, userID int64) (T, bool, error) {
	const op = "session.RedisStore.Get"
	var v T
	found, err := s.cache.Get(ctx, s.key(userID), &v)
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("%s: %w", op, err)
	}
	return v, found, nil
}

// Set заменяет сессию пользователя целиком.
func (s *RedisStore[T]) Set(ctx context.Context, userID int64, value T) error {
	const op = "session.RedisStore.Set"
	if err := s.cache.Set(ctx, s.key(userID), value, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Clear удаляет сессию.
func (s *RedisStore[T]) Clear(ctx context.Context, userID int64) error {
	const op = "session.RedisStore.Clear"
	if err := s.cache.Invalidate(ctx, s.key(userID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
