// Package cache persists raw provider responses so repeated queries
// within the TTL window never reach the network. Storage failures are
// never surfaced: a broken cache behaves like a cache that misses.
package cache

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pricehound/pricehound/internal/pricing"
)

// Store is the response-cache contract the aggregator depends on.
type Store interface {
	Get(key string) ([]pricing.RawOffer, bool)
	Put(key string, offers []pricing.RawOffer, ttl time.Duration)
}

// Cache is a sqlite-backed Store. Writes are idempotent; the last
// successful write for a key wins.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS responses (
			key        TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			stored_at  DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

// Get returns the cached offers for key, or found=false on a miss, an
// expired entry, or any storage error. Expired rows are deleted lazily
// here; there is no background sweep.
func (c *Cache) Get(key string) ([]pricing.RawOffer, bool) {
	var payload string
	var expiresAt time.Time

	err := c.db.QueryRow(
		`SELECT payload, expires_at FROM responses WHERE key = ?`, key,
	).Scan(&payload, &expiresAt)
	if err != nil {
		return nil, false
	}

	if time.Now().After(expiresAt) {
		if _, err := c.db.Exec(`DELETE FROM responses WHERE key = ?`, key); err != nil {
			log.Printf("cache: evict %s: %v", key, err)
		}
		return nil, false
	}

	var offers []pricing.RawOffer
	if err := json.Unmarshal([]byte(payload), &offers); err != nil {
		log.Printf("cache: unmarshal %s: %v", key, err)
		return nil, false
	}

	return offers, true
}

// Put stores offers under key with the given TTL. Failures are logged
// and swallowed.
func (c *Cache) Put(key string, offers []pricing.RawOffer, ttl time.Duration) {
	payload, err := json.Marshal(offers)
	if err != nil {
		log.Printf("cache: marshal %s: %v", key, err)
		return
	}

	now := time.Now()
	_, err = c.db.Exec(
		`INSERT INTO responses (key, payload, stored_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key)
		 DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at, expires_at = excluded.expires_at`,
		key, string(payload), now, now.Add(ttl),
	)
	if err != nil {
		log.Printf("cache: store %s: %v", key, err)
	}
}

func (c *Cache) Close() error {
	return c.db.Close()
}
