// Package store implements the score-ordered set primitives on top of an
// embedded Pebble database. Members of a set are stored under
// `z:<set>:<020d score>` so that Pebble's lexicographic key order is score
// order; counters live under the disjoint `c:` prefix. Each primitive is
// atomic on its own; composite sequences are the caller's concern.
package store

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"

	"copacabana/pkg/logger"
)

var (
	db     *pebble.DB
	dbPath string

	// incrMu serializes counter read-modify-write cycles. Pebble gives us
	// durable single-key writes; cross-call atomicity for Incr is ours.
	incrMu sync.Mutex
)

const (
	memberPrefix  = "z:"
	counterPrefix = "c:"
)

var errNotOpen = fmt.Errorf("pebble not opened; call store.Open first")

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for the process lifetime.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// memberKey encodes a set member address. The zero-padded score keeps
// numeric and lexicographic order identical for non-negative scores.
func memberKey(set string, score int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", memberPrefix, set, score))
}

func setPrefix(set string) []byte {
	return []byte(memberPrefix + set + ":")
}

// ZAdd inserts value into set at the given score, replacing any existing
// member at that score.
func ZAdd(set string, score int64, value []byte) error {
	if db == nil {
		return errNotOpen
	}
	key := memberKey(set, score)
	if err := db.Set(key, value, pebble.Sync); err != nil {
		logger.Error("zadd_failed", "set", set, "score", score, "error", err)
		return err
	}
	opsTotal.WithLabelValues("zadd").Inc()
	logger.Debug("zadd_ok", "set", set, "score", score, "len", len(value))
	return nil
}

// ZRangeByRank returns members of set by position, start..stop inclusive,
// zero-based. A negative stop means "through the end". Rank drifts as
// members are removed; callers must not treat it as a stable handle.
func ZRangeByRank(set string, start, stop int64) ([][]byte, error) {
	if db == nil {
		return nil, errNotOpen
	}
	prefix := setPrefix(set)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out [][]byte
	var rank int64
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if rank >= start && (stop < 0 || rank <= stop) {
			out = append(out, append([]byte(nil), iter.Value()...))
		}
		rank++
		if stop >= 0 && rank > stop {
			break
		}
	}
	opsTotal.WithLabelValues("zrange_rank").Inc()
	return out, iter.Error()
}

// ZRangeByScore returns members of set whose score lies in [min, max].
// A point lookup is the interval [id, id].
func ZRangeByScore(set string, min, max int64) ([][]byte, error) {
	if db == nil {
		return nil, errNotOpen
	}
	prefix := setPrefix(set)
	from := memberKey(set, min)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out [][]byte
	for iter.SeekGE(from); iter.Valid(); iter.Next() {
		k := iter.Key()
		if !bytes.HasPrefix(k, prefix) {
			break
		}
		score, err := scoreOf(k, prefix)
		if err != nil {
			return nil, err
		}
		if score > max {
			break
		}
		out = append(out, append([]byte(nil), iter.Value()...))
	}
	opsTotal.WithLabelValues("zrange_score").Inc()
	return out, iter.Error()
}

// ZRemRangeByScore removes members of set with scores in [min, max] and
// returns how many were removed.
func ZRemRangeByScore(set string, min, max int64) (int, error) {
	if db == nil {
		return 0, errNotOpen
	}
	prefix := setPrefix(set)
	from := memberKey(set, min)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	var victims [][]byte
	for iter.SeekGE(from); iter.Valid(); iter.Next() {
		k := iter.Key()
		if !bytes.HasPrefix(k, prefix) {
			break
		}
		score, serr := scoreOf(k, prefix)
		if serr != nil {
			_ = iter.Close()
			return 0, serr
		}
		if score > max {
			break
		}
		victims = append(victims, append([]byte(nil), k...))
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return 0, err
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	for _, k := range victims {
		if err := db.Delete(k, pebble.Sync); err != nil {
			logger.Error("zrem_failed", "set", set, "key", string(k), "error", err)
			return 0, err
		}
	}
	opsTotal.WithLabelValues("zrem_score").Inc()
	logger.Debug("zrem_ok", "set", set, "removed", len(victims))
	return len(victims), nil
}

// ZCard returns the number of members in set.
func ZCard(set string) (int64, error) {
	if db == nil {
		return 0, errNotOpen
	}
	prefix := setPrefix(set)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	var n int64
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		n++
	}
	return n, iter.Error()
}

// Incr atomically increments the named counter and returns the new value.
// Counters start at zero, so the first call returns 1.
func Incr(key string) (int64, error) {
	if db == nil {
		return 0, errNotOpen
	}
	incrMu.Lock()
	defer incrMu.Unlock()
	k := []byte(counterPrefix + key)
	var cur int64
	v, closer, err := db.Get(k)
	switch err {
	case nil:
		cur, err = strconv.ParseInt(string(v), 10, 64)
		cerr := closer.Close()
		if err != nil {
			return 0, fmt.Errorf("corrupt counter %s: %w", key, err)
		}
		if cerr != nil {
			return 0, cerr
		}
	case pebble.ErrNotFound:
		cur = 0
	default:
		return 0, err
	}
	next := cur + 1
	if err := db.Set(k, []byte(strconv.FormatInt(next, 10)), pebble.Sync); err != nil {
		logger.Error("incr_failed", "key", key, "error", err)
		return 0, err
	}
	opsTotal.WithLabelValues("incr").Inc()
	return next, nil
}

// GetCounter returns the current value of a counter without advancing it.
// Missing counters read as zero.
func GetCounter(key string) (int64, error) {
	if db == nil {
		return 0, errNotOpen
	}
	v, closer, err := db.Get([]byte(counterPrefix + key))
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return strconv.ParseInt(string(v), 10, 64)
}

func scoreOf(key, prefix []byte) (int64, error) {
	s := string(key[len(prefix):])
	score, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt member key %q: %w", string(key), err)
	}
	return score, nil
}

// Stats is a compact operational view of the store.
type Stats struct {
	Members   int64
	Counters  int64
	DiskBytes uint64
}

// GetStats walks the key space and the DB directory. Best-effort: intended
// for the stats reporter and the banner, not for hot paths.
func GetStats() Stats {
	var st Stats
	if db == nil {
		return st
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err == nil {
		for iter.First(); iter.Valid(); iter.Next() {
			switch {
			case bytes.HasPrefix(iter.Key(), []byte(memberPrefix)):
				st.Members++
			case bytes.HasPrefix(iter.Key(), []byte(counterPrefix)):
				st.Counters++
			}
		}
		_ = iter.Close()
	}
	if dbPath != "" {
		_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if fi, err := d.Info(); err == nil {
				st.DiskBytes += uint64(fi.Size())
			}
			return nil
		})
	}
	return st
}
