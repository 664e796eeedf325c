// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package tracklist

import (
	"github.com/spezifisch/mprisd/logger"
)

// resolveCache memoizes URI metadata resolution. Track metadata is resolved
// lazily on first access; the result is kept until the LRU pushes it out.
// Resolution is synchronous because it is pure parsing, so there is no
// background fetch pipeline here.
type resolveCache struct {
	entries map[string]trackMeta
	resolve func(string) (trackMeta, error)
	lru     lruList
	logger  logger.LoggerInterface
}

func newResolveCache(size int, resolve func(string) (trackMeta, error), logger_ logger.LoggerInterface) *resolveCache {
	return &resolveCache{
		entries: make(map[string]trackMeta),
		resolve: resolve,
		lru:     newLRUList(size),
		logger:  logger_,
	}
}

// Get returns the metadata for uri, resolving and caching it on a miss.
// A URI that fails to resolve yields the zero metadata (all "Unknown") and
// is not cached, so a later fix of the source text resolves cleanly.
func (c *resolveCache) Get(uri string) trackMeta {
	if meta, ok := c.entries[uri]; ok {
		if evict := c.lru.touch(uri); evict != "" {
			delete(c.entries, evict)
		}
		return meta
	}
	meta, err := c.resolve(uri)
	if err != nil {
		c.logger.Printf("metadata for %q unavailable: %s", uri, err)
		return trackMeta{title: "Unknown", artist: "Unknown", duration: defaultDuration}
	}
	c.entries[uri] = meta
	if evict := c.lru.touch(uri); evict != "" {
		delete(c.entries, evict)
	}
	return meta
}

// lruList tracks key access order for resolveCache. touch updates a key's
// recency and reports the key that fell off the end, if any.
type lruList struct {
	lookup map[string]*lruNode
	head   *lruNode
	tail   *lruNode
	size   int
}

type lruNode struct {
	next  *lruNode
	prev  *lruNode
	value string
}

func newLRUList(size int) lruList {
	return lruList{
		lookup: make(map[string]*lruNode),
		size:   size,
	}
}

func (l *lruList) touch(key string) string {
	if n, ok := l.lookup[key]; ok {
		if n == l.head {
			return ""
		}
		// unlink
		if n.prev != nil {
			n.prev.next = n.next
		}
		if n.next != nil {
			n.next.prev = n.prev
		}
		if n == l.tail {
			l.tail = n.prev
		}
		// move to front
		n.prev = nil
		n.next = l.head
		l.head.prev = n
		l.head = n
		return ""
	}

	n := &lruNode{value: key, next: l.head}
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.lookup[key] = n

	if len(l.lookup) > l.size {
		remove := l.tail
		l.tail = remove.prev
		if l.tail != nil {
			l.tail.next = nil
		}
		delete(l.lookup, remove.value)
		return remove.value
	}
	return ""
}
