package marketdata

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// EstimateCache persists serialized estimation results (expected returns,
// covariance) with expiration timestamps, so repeated allocation requests
// over the same candidate set skip re-estimation.
type EstimateCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewEstimateCache creates a cache over the cache database.
func NewEstimateCache(db *sql.DB, ttl time.Duration) *EstimateCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EstimateCache{db: db, ttl: ttl}
}

// EnsureSchema creates the cache table if it does not exist.
func (c *EstimateCache) EnsureSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS estimates (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create estimate cache schema: %w", err)
	}
	return nil
}

// Key builds a deterministic cache key from a ticker set and lookback
// window. Tickers are sorted so the key is order-independent.
func Key(tickers []string, lookbackDays int) string {
	sorted := make([]string, len(tickers))
	copy(sorted, tickers)
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", strings.Join(sorted, ","), lookbackDays)))
	return hex.EncodeToString(h[:16])
}

// Put stores a value under key with expiration = now + ttl.
func (c *EstimateCache) Put(key string, value interface{}) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}
	expiresAt := time.Now().Add(c.ttl).Unix()
	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO estimates (key, payload, expires_at) VALUES (?, ?, ?)
	`, key, payload, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Get loads a cached value into dest. Returns false when the key is absent
// or expired.
func (c *EstimateCache) Get(key string, dest interface{}) (bool, error) {
	var payload []byte
	err := c.db.QueryRow(`
		SELECT payload FROM estimates WHERE key = ? AND expires_at > ?
	`, key, time.Now().Unix()).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if err := msgpack.Unmarshal(payload, dest); err != nil {
		// A payload that no longer unmarshals is stale schema; treat as miss.
		return false, nil
	}
	return true, nil
}

// PruneExpired deletes expired entries and returns the number removed.
func (c *EstimateCache) PruneExpired() (int64, error) {
	res, err := c.db.Exec(`DELETE FROM estimates WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return res.RowsAffected()
}
