package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/cache"
)

// entry значение кэша с моментом истечения
type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache in-memory реализация cache.Cache с TTL.
// Используется когда Redis не сконфигурирован
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewCache создаёт новый in-memory кэш
func NewCache() cache.Cache {
	return &Cache{
		entries: make(map[string]entry),
	}
}

// Get получает значение по ключу
func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return "", fmt.Errorf("key not found: %s", key)
	}
	return e.value, nil
}

// Set устанавливает значение с TTL; ttl <= 0 означает без истечения
func (c *Cache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

// Delete удаляет значение по ключу
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Exists проверяет существование ключа
func (c *Cache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	return ok && !e.expired(time.Now()), nil
}

// Close очищает кэш
func (c *Cache) Close() error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return nil
}
