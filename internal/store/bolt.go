package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"pdf-rag/internal/embeddings"
)

var (
	bucketChunks = []byte("chunks")
	bucketMeta   = []byte("meta")
	keyDimension = []byte("dimension")
)

// BoltStore is a single-file local vector store with brute-force cosine search.
type BoltStore struct {
	db *bbolt.DB
}

type boltRecord struct {
	Text     string            `json:"text"`
	Vector   embeddings.Vector `json:"vector"`
	Metadata map[string]string `json:"metadata"`
}

// NewBoltStore opens (or creates) the store at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	if err := db.Update(createBuckets); err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func createBuckets(tx *bbolt.Tx) error {
	for _, b := range [][]byte{bucketChunks, bucketMeta} {
		if _, err := tx.CreateBucketIfNotExists(b); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", b, err)
		}
	}
	return nil
}

func (s *BoltStore) Upsert(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		dim := len(records[0].Vector)
		if stored := meta.Get(keyDimension); stored != nil {
			dim = int(binary.BigEndian.Uint32(stored))
		} else {
			buf := make([]byte, 4)
			binary.BigEndian.PutUint32(buf, uint32(dim))
			if err := meta.Put(keyDimension, buf); err != nil {
				return err
			}
		}

		chunks := tx.Bucket(bucketChunks)
		for _, r := range records {
			if len(r.Vector) != dim {
				return fmt.Errorf("%w: record %s has %d, store has %d", ErrDimensionMismatch, r.ID, len(r.Vector), dim)
			}
			data, err := json.Marshal(boltRecord{Text: r.Text, Vector: r.Vector, Metadata: r.Metadata})
			if err != nil {
				return err
			}
			if err := chunks.Put([]byte(r.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Query(_ context.Context, vector embeddings.Vector, k int) ([]Hit, error) {
	var hits []Hit
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(key, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", key, err)
			}
			if len(rec.Vector) != len(vector) {
				return fmt.Errorf("%w: query has %d, record %s has %d", ErrDimensionMismatch, len(vector), key, len(rec.Vector))
			}
			hits = append(hits, Hit{
				ID:       string(bytes.Clone(key)),
				Text:     rec.Text,
				Metadata: rec.Metadata,
				Distance: embeddings.CosineDistance(vector, rec.Vector),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// ties broken by id so equal inputs give equal rankings
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *BoltStore) Count(_ context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketChunks).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear drops every record and the recorded dimension.
func (s *BoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketMeta} {
			if err := tx.DeleteBucket(b); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
		}
		return createBuckets(tx)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
