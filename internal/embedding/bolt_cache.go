package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// BoltCache persists embeddings on disk so rebuilds and restarts skip re-embedding
// unchanged text. Each model gets its own bucket; keys are sha256(text).
type BoltCache struct {
	db     *bbolt.DB
	bucket []byte
}

// OpenBoltCache opens (or creates) the cache database at path for the given model name.
func OpenBoltCache(path, model string) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	bucket := []byte("embeddings:" + model)
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}
	return &BoltCache{db: db, bucket: bucket}, nil
}

func cacheKey(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}

// Get returns the stored embedding for text.
func (c *BoltCache) Get(text string) ([]float32, bool, error) {
	var out []float32
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(c.bucket).Get(cacheKey(text))
		if data == nil {
			return nil
		}
		if len(data)%4 != 0 {
			return fmt.Errorf("corrupt cache entry of %d bytes", len(data))
		}
		out = make([]float32, len(data)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Put stores the embeddings for texts in one transaction.
func (c *BoltCache) Put(texts []string, embeddings [][]float32) error {
	if len(texts) != len(embeddings) {
		return fmt.Errorf("cache put: %d texts but %d embeddings", len(texts), len(embeddings))
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(c.bucket)
		for i, text := range texts {
			data := make([]byte, 4*len(embeddings[i]))
			for j, v := range embeddings[i] {
				binary.LittleEndian.PutUint32(data[j*4:], math.Float32bits(v))
			}
			if err := b.Put(cacheKey(text), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of entries for this model.
func (c *BoltCache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(c.bucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the database.
func (c *BoltCache) Close() error {
	return c.db.Close()
}
