// Package cache provides a bounded, concurrency-safe LRU map used to
// cap per-user resources like live broadcasters. When the cap is hit
// the least recently used entry is evicted and the eviction hook runs,
// so held resources can be released.
//
// Usage:
//
//	c := cache.NewLRU(1000, cache.WithOnEvict(func(id string, conn *Conn) {
//		conn.Close()
//	}))
//	conn := c.GetOrSet("usr_1", newConn)
package cache
