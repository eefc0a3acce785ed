package cache

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the persisted cache backend. Storage failures surface
// as cache errors; TTL and LRU semantics match the memory store.
type SQLiteStore struct {
	db       *sql.DB
	maxBytes int64
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string, maxBytes int64) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ErrCache("open", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{db: db, maxBytes: maxBytes}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS cache_entries (
  key TEXT PRIMARY KEY,
  model_id TEXT NOT NULL,
  value BLOB NOT NULL,
  created_at_ns INTEGER NOT NULL,
  ttl_ns INTEGER NOT NULL,
  size INTEGER NOT NULL,
  last_access_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_model ON cache_entries(model_id);
CREATE INDEX IF NOT EXISTS idx_cache_access ON cache_entries(last_access_ns);
`)
	return ErrCache("migrate", err)
}

func (s *SQLiteStore) Get(key string, now time.Time) (Entry, bool, error) {
	row := s.db.QueryRow(
		`SELECT model_id, value, created_at_ns, ttl_ns, size FROM cache_entries WHERE key=?;`, key)
	var (
		e         Entry
		createdNS int64
		ttlNS     int64
	)
	e.Key = key
	err := row.Scan(&e.ModelID, &e.Value, &createdNS, &ttlNS, &e.Size)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, ErrCache("get", err)
	}
	e.CreatedAt = time.Unix(0, createdNS)
	e.TTL = time.Duration(ttlNS)
	if e.expiredAt(now) {
		if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE key=?;`, key); err != nil {
			return Entry{}, false, ErrCache("purge", err)
		}
		return Entry{}, false, nil
	}
	if _, err := s.db.Exec(`UPDATE cache_entries SET last_access_ns=? WHERE key=?;`, now.UnixNano(), key); err != nil {
		return Entry{}, false, ErrCache("touch", err)
	}
	return e, true, nil
}

func (s *SQLiteStore) Put(e Entry, now time.Time) (int, error) {
	if e.Size > s.maxBytes {
		return 0, nil
	}
	evicted := 0
	// Expired entries are evicted first regardless of recency.
	res, err := s.db.Exec(`DELETE FROM cache_entries WHERE created_at_ns+ttl_ns <= ?;`, now.UnixNano())
	if err != nil {
		return 0, ErrCache("evict", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		evicted += int(n)
	}
	for {
		used, err := s.usedBytes()
		if err != nil {
			return evicted, err
		}
		if used+e.Size <= s.maxBytes {
			break
		}
		res, err := s.db.Exec(`DELETE FROM cache_entries WHERE key =
  (SELECT key FROM cache_entries ORDER BY last_access_ns ASC LIMIT 1);`)
		if err != nil {
			return evicted, ErrCache("evict", err)
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			break
		}
		evicted += int(n)
	}
	_, err = s.db.Exec(`INSERT INTO cache_entries
  (key, model_id, value, created_at_ns, ttl_ns, size, last_access_ns)
  VALUES (?,?,?,?,?,?,?)
  ON CONFLICT(key) DO UPDATE SET
    model_id=excluded.model_id, value=excluded.value,
    created_at_ns=excluded.created_at_ns, ttl_ns=excluded.ttl_ns,
    size=excluded.size, last_access_ns=excluded.last_access_ns;`,
		e.Key, e.ModelID, e.Value, e.CreatedAt.UnixNano(), int64(e.TTL), e.Size, now.UnixNano())
	if err != nil {
		return evicted, ErrCache("put", err)
	}
	return evicted, nil
}

func (s *SQLiteStore) usedBytes() (int64, error) {
	var n sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(size) FROM cache_entries;`).Scan(&n); err != nil {
		return 0, ErrCache("size", err)
	}
	return n.Int64, nil
}

func (s *SQLiteStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM cache_entries WHERE key=?;`, key)
	return ErrCache("delete", err)
}

func (s *SQLiteStore) DeleteModel(modelID string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM cache_entries WHERE model_id=?;`, modelID)
	if err != nil {
		return 0, ErrCache("delete model", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM cache_entries;`)
	return ErrCache("clear", err)
}

func (s *SQLiteStore) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries;`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *SQLiteStore) SizeBytes() int64 {
	n, err := s.usedBytes()
	if err != nil {
		return 0
	}
	return n
}

func (s *SQLiteStore) Close() error {
	return ErrCache("close", s.db.Close())
}
