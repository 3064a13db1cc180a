// Package store caches the notes a wallet owns in a bbolt database, along
// with the highest tree position scanned so far, so that a scan can resume
// where the previous one stopped.
package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"go.etcd.io/bbolt"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
)

var (
	bucketUnspent = []byte("unspent")
	bucketSpent   = []byte("spent")
	bucketMeta    = []byte("meta")

	keyLastPos = []byte("last_pos")
)

// ErrCorruptRecord reports a stored record that does not decode.
var ErrCorruptRecord = errors.New("store: corrupt record")

// recordSize is the encoded size of a Record.
const recordSize = 8 + fr.Bytes + keys.PublicKeySize + note.Size

// Record is an owned note with the data needed to spend and report it.
type Record struct {
	Note        note.Note
	Nullifier   fr.Element
	BlockHeight uint64
	PublicKey   keys.PublicKey
}

// Cache is a bbolt-backed note cache.
type Cache struct {
	db *bbolt.DB
}

// Open opens or creates the cache at path, creating the parent directory
// if needed.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUnspent, bucketSpent, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

// posKey encodes a tree position big-endian so cursors walk in tree order.
func posKey(pos uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, pos)
	return k
}

func encodeRecord(r Record) []byte {
	out := make([]byte, 0, recordSize)
	out = binary.LittleEndian.AppendUint64(out, r.BlockHeight)
	nullifier := r.Nullifier.Bytes()
	out = append(out, nullifier[:]...)
	pk := r.PublicKey.Bytes()
	out = append(out, pk[:]...)
	n := r.Note.Bytes()
	return append(out, n[:]...)
}

func decodeRecord(b []byte) (Record, error) {
	var r Record
	if len(b) != recordSize {
		return r, fmt.Errorf("%w: %d bytes", ErrCorruptRecord, len(b))
	}
	r.BlockHeight = binary.LittleEndian.Uint64(b)
	b = b[8:]
	if err := r.Nullifier.SetBytesCanonical(b[:fr.Bytes]); err != nil {
		return r, fmt.Errorf("%w: nullifier: %v", ErrCorruptRecord, err)
	}
	b = b[fr.Bytes:]
	pk, err := keys.PublicKeyFromBytes(b[:keys.PublicKeySize])
	if err != nil {
		return r, fmt.Errorf("%w: public key: %v", ErrCorruptRecord, err)
	}
	r.PublicKey = pk
	if r.Note, err = note.FromBytes(b[keys.PublicKeySize:]); err != nil {
		return r, fmt.Errorf("%w: note: %v", ErrCorruptRecord, err)
	}
	return r, nil
}

// Records zips a scan result into records.
func Records(res note.ScanResult) []Record {
	out := make([]Record, len(res.Notes))
	for i := range res.Notes {
		out[i] = Record{
			Note:        res.Notes[i],
			Nullifier:   res.Nullifiers[i],
			BlockHeight: res.BlockHeights[i],
			PublicKey:   res.PublicKeys[i],
		}
	}
	return out
}

// Insert stores the records of a scan that covered the tree up to lastPos.
// Records already known, spent or not, are left untouched. The stored last
// position never moves backwards.
func (c *Cache) Insert(records []Record, lastPos uint64) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		unspent := tx.Bucket(bucketUnspent)
		spent := tx.Bucket(bucketSpent)
		for _, r := range records {
			k := posKey(r.Note.Pos)
			if unspent.Get(k) != nil || spent.Get(k) != nil {
				continue
			}
			if err := unspent.Put(k, encodeRecord(r)); err != nil {
				return fmt.Errorf("store: put note: %w", err)
			}
		}

		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyLastPos); v != nil && binary.BigEndian.Uint64(v) >= lastPos {
			return nil
		}
		if err := meta.Put(keyLastPos, posKey(lastPos)); err != nil {
			return fmt.Errorf("store: put last position: %w", err)
		}
		return nil
	})
}

// LastPos returns the highest scanned position; ok is false before the
// first scan.
func (c *Cache) LastPos() (pos uint64, ok bool, err error) {
	err = c.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyLastPos); v != nil {
			pos, ok = binary.BigEndian.Uint64(v), true
		}
		return nil
	})
	return pos, ok, err
}

// MarkSpent moves the unspent records whose nullifier is among existing
// into the spent bucket and returns how many moved.
func (c *Cache) MarkSpent(existing []fr.Element) (int, error) {
	set := note.NewNullifierSet(existing)
	moved := 0
	err := c.db.Update(func(tx *bbolt.Tx) error {
		unspent := tx.Bucket(bucketUnspent)
		spent := tx.Bucket(bucketSpent)

		// Values point into the mmap and are copied before the bucket changes.
		var moving [][2][]byte
		err := unspent.ForEach(func(k, v []byte) error {
			r, err := decodeRecord(v)
			if err != nil {
				return err
			}
			if set.Contains(r.Nullifier) {
				moving = append(moving, [2][]byte{bytes.Clone(k), bytes.Clone(v)})
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, kv := range moving {
			if err := spent.Put(kv[0], kv[1]); err != nil {
				return fmt.Errorf("store: put spent note: %w", err)
			}
			if err := unspent.Delete(kv[0]); err != nil {
				return fmt.Errorf("store: delete unspent note: %w", err)
			}
		}
		moved = len(moving)
		return nil
	})
	return moved, err
}

// Unspent returns the unspent records in tree order. A non-nil pk keeps
// only the records of that key.
func (c *Cache) Unspent(pk *keys.PublicKey) ([]Record, error) {
	return c.list(bucketUnspent, pk)
}

// Spent returns the spent records in tree order. A non-nil pk keeps only
// the records of that key.
func (c *Cache) Spent(pk *keys.PublicKey) ([]Record, error) {
	return c.list(bucketSpent, pk)
}

func (c *Cache) list(bucket []byte, pk *keys.PublicKey) ([]Record, error) {
	var out []Record
	err := c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			r, err := decodeRecord(v)
			if err != nil {
				return err
			}
			if pk == nil || r.PublicKey.Equal(*pk) {
				out = append(out, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", bucket, err)
	}
	return out, nil
}

// FetchNotes returns every cached note of the view key, spent or not, in
// tree order. It lets the cache stand in for the notes half of a state
// client.
func (c *Cache) FetchNotes(_ context.Context, vk keys.ViewKey) ([]note.Note, error) {
	pk := vk.PublicKey()
	unspent, err := c.Unspent(&pk)
	if err != nil {
		return nil, err
	}
	spent, err := c.Spent(&pk)
	if err != nil {
		return nil, err
	}
	records := append(unspent, spent...)
	sort.Slice(records, func(i, j int) bool { return records[i].Note.Pos < records[j].Note.Pos })
	return Notes(records), nil
}

// Notes returns the notes of records.
func Notes(records []Record) []note.Note {
	if records == nil {
		return nil
	}
	out := make([]note.Note, len(records))
	for i, r := range records {
		out[i] = r.Note
	}
	return out
}
