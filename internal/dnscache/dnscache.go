// Package dnscache maintains a bounded LRU of hostname/address bindings
// learned from DNS answers, mDNS announcements, and on-demand reverse
// lookups.
package dnscache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries bounds the cache at 10,000 bindings.
	DefaultMaxEntries = 10_000

	// evictBatch is the number of oldest entries removed once the cache is
	// full, rather than evicting one entry per insert. A single-entry
	// eviction policy thrashes under a burst of new names; evicting a
	// batch amortizes the cost and keeps the cache well under its bound
	// afterward.
	evictBatch = 1_000

	// DefaultTTL is how long a binding is trusted before a sweep removes it.
	DefaultTTL = 5 * time.Minute
)

// Binding is one hostname<->IP observation.
type Binding struct {
	Hostname  string
	IP        string
	UpdatedAt time.Time
}

type entry struct {
	binding Binding
	elem    *list.Element
}

// Cache is a concurrent-safe, TTL-bounded LRU indexed by both hostname and
// IP, since lookups arrive from either direction (a DNS answer gives
// name->ip, a reverse probe gives ip->name).
type Cache struct {
	mu        sync.Mutex
	byKey     map[string]*entry // "h:"+hostname or "i:"+ip -> entry
	lru       *list.List
	maxEntries int
	ttl       time.Duration
	now       func() time.Time
}

// New creates a Cache bounded at maxEntries with the given TTL. Zero values
// fall back to DefaultMaxEntries / DefaultTTL.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		byKey:      make(map[string]*entry),
		lru:        list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func hostKey(h string) string { return "h:" + strings.ToLower(h) }
func ipKey(ip string) string  { return "i:" + ip }

// Put records a hostname<->IP binding, indexed both ways.
func (c *Cache) Put(hostname, ip string) {
	if hostname == "" && ip == "" {
		return
	}
	now := c.now()
	b := Binding{Hostname: hostname, IP: ip, UpdatedAt: now}

	c.mu.Lock()
	defer c.mu.Unlock()

	if hostname != "" {
		c.upsert(hostKey(hostname), b)
	}
	if ip != "" {
		c.upsert(ipKey(ip), b)
	}
	c.evictIfFull()
}

func (c *Cache) upsert(key string, b Binding) {
	if e, ok := c.byKey[key]; ok {
		e.binding = b
		c.lru.MoveToFront(e.elem)
		return
	}
	e := &entry{binding: b}
	e.elem = c.lru.PushFront(key)
	c.byKey[key] = e
}

// evictIfFull removes the oldest evictBatch entries once the cache has
// grown past maxEntries. Called with the lock held.
func (c *Cache) evictIfFull() {
	if len(c.byKey) <= c.maxEntries {
		return
	}
	for i := 0; i < evictBatch; i++ {
		back := c.lru.Back()
		if back == nil {
			return
		}
		key := back.Value.(string)
		c.lru.Remove(back)
		delete(c.byKey, key)
	}
}

// LookupHostname returns the IP last bound to hostname, if present and not
// expired.
func (c *Cache) LookupHostname(hostname string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byKey[hostKey(hostname)]
	if !ok || c.now().Sub(e.binding.UpdatedAt) > c.ttl {
		return "", false
	}
	c.lru.MoveToFront(e.elem)
	return e.binding.IP, true
}

// LookupIP returns the hostname last bound to ip, if present and not
// expired.
func (c *Cache) LookupIP(ip string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byKey[ipKey(ip)]
	if !ok || c.now().Sub(e.binding.UpdatedAt) > c.ttl {
		return "", false
	}
	c.lru.MoveToFront(e.elem)
	return e.binding.Hostname, true
}

// Sweep removes all entries older than the configured TTL. Intended to run
// on a periodic ticker alongside the cleanup task.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for e := c.lru.Back(); e != nil; {
		prev := e.Prev()
		key := e.Value.(string)
		ent := c.byKey[key]
		if ent != nil && now.Sub(ent.binding.UpdatedAt) > c.ttl {
			c.lru.Remove(e)
			delete(c.byKey, key)
			removed++
		}
		e = prev
	}
	return removed
}

// Len returns the current number of indexed keys (hostname and IP entries
// counted separately).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}
