package session

import (
	"context"
	"sync"
)

// MemoryCache is the in-process Cache. Partitions are plain maps behind a
// single RWMutex; the partition count tracks active clients and stays small.
type MemoryCache struct {
	mu         sync.RWMutex
	partitions map[string]map[string]Snapshot
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{partitions: make(map[string]map[string]Snapshot)}
}

func (c *MemoryCache) Put(_ context.Context, clientID, token string, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.partitions[clientID]
	if !ok {
		p = make(map[string]Snapshot)
		c.partitions[clientID] = p
	}
	p[token] = snap
	return nil
}

func (c *MemoryCache) Get(_ context.Context, clientID, token string) (Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.partitions[clientID][token]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (c *MemoryCache) Delete(_ context.Context, clientID, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.partitions[clientID]
	if !ok {
		return nil
	}
	delete(p, token)
	if len(p) == 0 {
		delete(c.partitions, clientID)
	}
	return nil
}

func (c *MemoryCache) DeleteToken(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for clientID, p := range c.partitions {
		delete(p, token)
		if len(p) == 0 {
			delete(c.partitions, clientID)
		}
	}
	return nil
}

func (c *MemoryCache) UpdateToken(_ context.Context, token string, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.partitions {
		if _, ok := p[token]; ok {
			p[token] = snap
		}
	}
	return nil
}

// Len returns the number of cached entries across all partitions.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, p := range c.partitions {
		n += len(p)
	}
	return n
}
