// Package cache implements the resolver's response cache: a mapping from a
// canonical question to the verbatim upstream message that answered it,
// keyed on the question alone, with each entry expiring after the TTL its
// caller passes to Put (MinimumTTL computes the smallest record TTL of a
// set of sections for that purpose).
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// Key is the canonical form of a Question: qname lower-cased label-wise,
// qtype and qclass exact.
type Key struct {
	Name  string
	Type  uint16
	Class uint16
}

type item struct {
	msg     *dns.Msg
	addedAt time.Time
	ttl     time.Duration
	elem    *list.Element
}

// Cache is a size-bounded, TTL-aware, LRU response cache. Safe for
// concurrent use.
type Cache struct {
	maxSize int

	mu    sync.Mutex
	items map[Key]item
	lru   *list.List // list of Key, most-recently-used at the back
}

// New returns a Cache holding at most maxSize entries. A non-positive
// maxSize disables the size bound.
func New(maxSize int) *Cache {
	return &Cache{
		maxSize: maxSize,
		items:   map[Key]item{},
		lru:     list.New(),
	}
}

// Get returns a copy of the message stored for key, or (nil, false) if
// there is no entry, or the entry's TTL has elapsed. A copy is returned so
// that the caller (reply assembly) cannot interfere with a future Put for
// the same key.
func (c *Cache) Get(key Key) (*dns.Msg, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return nil, false
	}

	if time.Since(it.addedAt) > it.ttl {
		c.evictLocked(key, it)
		return nil, false
	}

	c.lru.MoveToBack(it.elem)

	return it.msg.Copy(), true
}

// Put stores msg for key with the given ttl, overwriting any existing
// entry. Last writer wins.
func (c *Cache) Put(key Key, msg *dns.Msg, ttl time.Duration) {
	stored := msg.Copy()

	c.mu.Lock()
	defer c.mu.Unlock()

	it, exists := c.items[key]
	it.msg = stored
	it.addedAt = time.Now()
	it.ttl = ttl

	if exists {
		c.lru.MoveToBack(it.elem)
	} else {
		it.elem = c.lru.PushBack(key)
	}

	c.items[key] = it

	c.prune()

	if c.lru.Len() != len(c.items) {
		panic(fmt.Sprintf("cache: map and list out of sync: len(map)=%d len(list)=%d", len(c.items), c.lru.Len()))
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = map[Key]item{}
	c.lru.Init()
}

func (c *Cache) evictLocked(key Key, it item) {
	if it.elem != nil {
		c.lru.Remove(it.elem)
	}
	delete(c.items, key)
}

func (c *Cache) prune() {
	if c.maxSize <= 0 {
		return
	}

	for len(c.items) > c.maxSize {
		front := c.lru.Front()
		if front == nil {
			return
		}
		key := front.Value.(Key)
		c.lru.Remove(front)
		delete(c.items, key)
	}
}

// MinimumTTL returns the smallest TTL among the given record sections,
// in seconds converted to a time.Duration. If every section is empty,
// it returns zero.
func MinimumTTL(sections ...[]dns.RR) time.Duration {
	var (
		min  time.Duration
		seen bool
	)

	for _, section := range sections {
		for _, rr := range section {
			ttl := time.Duration(rr.Header().Ttl) * time.Second
			if !seen || ttl < min {
				min = ttl
				seen = true
			}
		}
	}

	return min
}
