// Package cache persists probe verdicts between runs.
//
// Verdicts live in a single BoltDB file. The results bucket holds one nested
// bucket per toolchain fingerprint hash, keyed by probe name. Each record
// carries the content hash of the probe it was produced for, so an edited
// probe misses and is overwritten on the next store. A changed toolchain
// lands in a different fingerprint bucket and never sees old verdicts.
//
// Lookups pass through an in-memory LRU. Writes are serialized by BoltDB's
// single writer transaction. Verdicts cut short by cancellation or a host
// I/O failure are never stored.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/Norgate-AV/featprobe/internal/probe"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

const (
	// FileName is the database file created inside the cache directory
	FileName = "probes.db"

	metaBucket    = "meta"
	resultsBucket = "results"
	schemaKey     = "schema"

	hotEntries  = 1024
	openTimeout = 1 * time.Second
)

// ErrLocked is returned by Open when another process holds the database.
var ErrLocked = errors.New("cache database is locked by another process")

// CorruptError reports a stored record that could not be decoded. The
// record has already been discarded when this is returned.
type CorruptError struct {
	Fingerprint string
	Probe       string
	Err         error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("discarded unreadable cache record for %s (fingerprint %s): %v",
		e.Probe, ShortHash(e.Fingerprint), e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Stats summarises the contents of the cache.
type Stats struct {
	Path         string
	Fingerprints int
	Entries      int
	Size         int64
}

// Cache stores probe verdicts keyed by fingerprint and probe.
type Cache struct {
	db       *bbolt.DB
	path     string
	hot      *lru.Cache[string, Record]
	warnings []string
}

// Open opens or creates the cache database inside dir.
//
// A database that cannot be read is moved aside and replaced with an empty
// one. A database written with a different schema has its results dropped.
// Both cases are reported through Warnings rather than as errors. If another
// process holds the file, Open gives up after a second with ErrLocked.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache directory not set")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	var warnings []string

	db, err := openDB(path)
	if err != nil {
		if errors.Is(err, berrors.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}

		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}

		moved, qerr := quarantine(path)
		if qerr != nil {
			return nil, qerr
		}

		msg := fmt.Sprintf("cache database %s was unreadable (%v) and has been reset", path, err)
		if moved != "" {
			msg += fmt.Sprintf("; old copy kept at %s", moved)
		}
		warnings = append(warnings, msg)

		db, err = openDB(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
	}

	hot, err := lru.New[string, Record](hotEntries)
	if err != nil {
		db.Close()
		return nil, err
	}

	c := &Cache{db: db, path: path, hot: hot, warnings: warnings}

	dropped, err := c.ensureSchema()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise cache buckets: %w", err)
	}

	if dropped {
		c.warnings = append(c.warnings, "cache schema changed; stored results were discarded")
	}

	return c, nil
}

func openDB(path string) (*bbolt.DB, error) {
	return bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
}

// ensureSchema creates the buckets and drops results written under another schema.
func (c *Cache) ensureSchema() (bool, error) {
	want, err := msgpack.Marshal(SchemaVersion)
	if err != nil {
		return false, err
	}

	dropped := false
	err = c.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return err
		}

		current := meta.Get([]byte(schemaKey))
		if !bytes.Equal(current, want) {
			if tx.Bucket([]byte(resultsBucket)) != nil {
				if err := tx.DeleteBucket([]byte(resultsBucket)); err != nil {
					return err
				}
				dropped = true
			}

			if err := meta.Put([]byte(schemaKey), want); err != nil {
				return err
			}
		}

		_, err = tx.CreateBucketIfNotExists([]byte(resultsBucket))
		return err
	})

	return dropped, err
}

// Path returns the database file location.
func (c *Cache) Path() string { return c.path }

// Warnings returns the recoveries performed while opening the cache.
func (c *Cache) Warnings() []string {
	return append([]string(nil), c.warnings...)
}

// Close closes the cache database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Get looks up the verdict for p under fp.
//
// A stored verdict for a different content hash is a miss. A record that
// cannot be decoded is deleted and reported as a *CorruptError; callers
// treat that as a miss too.
func (c *Cache) Get(fp *toolchain.Fingerprint, p *probe.Probe) (probe.Result, bool, error) {
	key := lruKey(fp.Hash, p.Name())
	if rec, ok := c.hot.Get(key); ok && rec.ContentHash == p.ContentHash() {
		return rec.Result(p.Name()), true, nil
	}

	var data []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := fingerprintBucket(tx, fp.Hash)
		if b == nil {
			return nil
		}

		if v := b.Get([]byte(p.Name())); v != nil {
			data = bytes.Clone(v)
		}

		return nil
	})
	if err != nil {
		return probe.Result{}, false, err
	}

	if data == nil {
		return probe.Result{}, false, nil
	}

	rec, err := decodeRecord(data)
	if err != nil {
		if delErr := c.delete(fp.Hash, p.Name()); delErr != nil {
			err = errors.Join(err, delErr)
		}

		return probe.Result{}, false, &CorruptError{Fingerprint: fp.Hash, Probe: p.Name(), Err: err}
	}

	if rec.ContentHash != p.ContentHash() {
		return probe.Result{}, false, nil
	}

	c.hot.Add(key, rec)
	return rec.Result(p.Name()), true, nil
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}

	if rec.Schema != SchemaVersion {
		return Record{}, fmt.Errorf("record schema %d, want %d", rec.Schema, SchemaVersion)
	}

	if rec.ContentHash == "" || !Storable(rec.Reason) {
		return Record{}, errors.New("record carries no verdict")
	}

	return rec, nil
}

// Storable reports whether a result with the given reason describes the
// toolchain. Cancellation and scratch I/O failures describe this run only.
func Storable(reason probe.Reason) bool {
	return reason != "" && reason != probe.ReasonCanceled && reason != probe.ReasonIOError
}

// Put stores res for p under fp, replacing any earlier verdict.
// Results that are not Storable are ignored.
func (c *Cache) Put(fp *toolchain.Fingerprint, p *probe.Probe, res probe.Result) error {
	if !Storable(res.Reason) {
		return nil
	}

	rec, err := newRecord(p.ContentHash(), res)
	if err != nil {
		return fmt.Errorf("failed to build cache record for %s: %w", p.Name(), err)
	}

	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to encode cache record for %s: %w", p.Name(), err)
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(resultsBucket))
		if err != nil {
			return err
		}

		b, err := root.CreateBucketIfNotExists([]byte(fp.Hash))
		if err != nil {
			return err
		}

		return b.Put([]byte(p.Name()), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store cache record for %s: %w", p.Name(), err)
	}

	c.hot.Add(lruKey(fp.Hash, p.Name()), rec)
	return nil
}

func (c *Cache) delete(fingerprint, name string) error {
	c.hot.Remove(lruKey(fingerprint, name))

	return c.db.Update(func(tx *bbolt.Tx) error {
		b := fingerprintBucket(tx, fingerprint)
		if b == nil {
			return nil
		}

		return b.Delete([]byte(name))
	})
}

func fingerprintBucket(tx *bbolt.Tx, fingerprint string) *bbolt.Bucket {
	root := tx.Bucket([]byte(resultsBucket))
	if root == nil {
		return nil
	}

	return root.Bucket([]byte(fingerprint))
}

// Clear removes every stored verdict.
func (c *Cache) Clear() error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(resultsBucket)); err != nil && !errors.Is(err, berrors.ErrBucketNotFound) {
			return err
		}

		_, err := tx.CreateBucket([]byte(resultsBucket))
		return err
	})
	if err != nil {
		return err
	}

	c.hot.Purge()
	return nil
}

// Prune removes verdicts for every fingerprint except keep and returns how
// many fingerprints were removed.
func (c *Cache) Prune(keep string) (int, error) {
	removed := 0

	err := c.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(resultsBucket))
		if root == nil {
			return nil
		}

		var stale [][]byte
		err := root.ForEach(func(k, v []byte) error {
			if v == nil && string(k) != keep {
				stale = append(stale, bytes.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := root.DeleteBucket(k); err != nil {
				return err
			}
		}

		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.hot.Purge()
	return removed, nil
}

// Stats returns cache statistics
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Path: c.path}

	err := c.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(resultsBucket))
		if root == nil {
			return nil
		}

		return root.ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}

			stats.Fingerprints++
			stats.Entries += root.Bucket(k).Stats().KeyN
			return nil
		})
	})
	if err != nil {
		return Stats{}, err
	}

	stats.Size = fileSize(c.path)
	return stats, nil
}
