// Package flowtable deduplicates L3 flow observations into
// (src, dst, proto, port) connection rows before they reach storage,
// eliminating a per-packet write for every packet on an already-seen
// conversation.
package flowtable

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Key identifies one deduplicated conversation.
type Key struct {
	SrcEndpointID int64
	DstEndpointID int64
	Protocol      string
	SrcPort       uint16
	DstPort       uint16
}

func (k Key) string() string {
	return fmt.Sprintf("%d:%d:%s:%d:%d", k.SrcEndpointID, k.DstEndpointID, k.Protocol, k.SrcPort, k.DstPort)
}

// Row is one conversation's state since the last flush. PacketCount and
// Bytes are deltas, not lifetime totals — they reset to zero every time
// FlushDirty reports them, so the storage writer's additive upsert never
// double-counts a packet across flushes. Dirty rows are flushed to the
// storage writer and then cleared.
type Row struct {
	Key         Key
	PacketCount uint64
	Bytes       uint64
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	Dirty       bool
}

type node struct {
	key  string
	row  *Row
	elem *list.Element
}

// Table is a concurrent-safe LRU of in-flight conversations, keyed by the
// 5-tuple. It never drops a conversation that is still dirty; eviction only
// removes clean (already flushed) rows to bound memory.
type Table struct {
	mu      sync.Mutex
	rows    map[string]*node
	lru     *list.List
	maxSize int

	hits   uint64
	misses uint64
}

// New creates a Table bounded at maxSize entries.
func New(maxSize int) *Table {
	if maxSize <= 0 {
		maxSize = 100_000
	}
	return &Table{
		rows:    make(map[string]*node),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Observe records one packet against the conversation identified by key,
// creating the row if it doesn't exist, and returns the updated row.
func (t *Table) Observe(key Key, bytes uint64, at time.Time) *Row {
	k := key.string()

	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.rows[k]; ok {
		t.lru.MoveToFront(n.elem)
		n.row.PacketCount++
		n.row.Bytes += bytes
		n.row.LastSeenAt = at
		n.row.Dirty = true
		atomic.AddUint64(&t.hits, 1)
		return n.row
	}

	atomic.AddUint64(&t.misses, 1)

	if t.lru.Len() >= t.maxSize {
		t.evictClean()
	}

	row := &Row{
		Key:         key,
		PacketCount: 1,
		Bytes:       bytes,
		FirstSeenAt: at,
		LastSeenAt:  at,
		Dirty:       true,
	}
	n := &node{key: k, row: row}
	n.elem = t.lru.PushFront(n)
	t.rows[k] = n
	return row
}

// evictClean removes the least-recently-used clean row. If the LRU tail is
// dirty (not yet flushed), it is left in place; the table may briefly
// exceed maxSize under sustained write-channel backpressure, which is
// preferable to losing an unflushed counter.
func (t *Table) evictClean() {
	for e := t.lru.Back(); e != nil; e = e.Prev() {
		n := e.Value.(*node)
		if n.row.Dirty {
			continue
		}
		t.lru.Remove(e)
		delete(t.rows, n.key)
		return
	}
}

// FlushDirty collects all dirty rows, returning a snapshot of the counters
// accumulated since the previous flush for the caller to send to the
// storage writer, which adds each snapshot onto its own running total.
// PacketCount/Bytes are reset to zero so the next flush reports only new
// packets, not the conversation's lifetime total again. Rows remain in the
// table (clean, zeroed) so subsequent packets on the same conversation keep
// hitting the cache instead of re-querying storage.
func (t *Table) FlushDirty() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Row
	for _, n := range t.rows {
		if n.row.Dirty {
			out = append(out, *n.row)
			n.row.PacketCount = 0
			n.row.Bytes = 0
			n.row.Dirty = false
		}
	}
	return out
}

// Stats reports cache hit/miss counters and current size.
func (t *Table) Stats() (hits, misses uint64, size int) {
	t.mu.Lock()
	size = len(t.rows)
	t.mu.Unlock()
	return atomic.LoadUint64(&t.hits), atomic.LoadUint64(&t.misses), size
}
