// Package cache provides the small in-process response caches the HTTP
// layer puts in front of summary and chart rendering.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a size-bounded cache with per-entry TTL. Keys are month keys or
// other short route parameters.
type LRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func NewLRU[T any](maxSize int, ttl time.Duration) *LRU[T] {
	return &LRU[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a value from the cache
func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	e := elem.Value.(*entry[T])
	if time.Now().After(e.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return e.data, true
}

// Set stores a value in the cache
func (c *LRU[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(e)
	c.items[key] = elem

	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes a key from the cache
func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

// Clear drops everything, used after mutations that touch several months.
func (c *LRU[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *LRU[T]) removeElement(elem *list.Element) {
	e := elem.Value.(*entry[T])
	delete(c.items, e.key)
	c.order.Remove(elem)
}

// CleanExpired removes all expired entries and returns how many were removed
func (c *LRU[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element

	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the current number of items in the cache
func (c *LRU[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Cleaner is any cache the janitor can sweep.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps expired entries out of registered caches.
type Janitor struct {
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{
		caches: caches,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (j *Janitor) Start(interval time.Duration) {
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for _, c := range j.caches {
					c.CleanExpired()
				}
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep and waits for it to finish.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
