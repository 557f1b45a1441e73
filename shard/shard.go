// Package shard maps work items onto a fixed, ordered pool of daemons.
//
// The mapping is static: the xxhash64 digest of the key, read as an unsigned integer,
// modulo the pool size. Identical keys, pool size and pool order always give the same index.
package shard

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

var ErrEmptyPool = errors.New("pool is empty")

// Assign returns the pool index in [0, poolSize) owning key.
func Assign(key []byte, poolSize int) (int, error) {
	if poolSize <= 0 {
		return 0, fmt.Errorf("assign %d members: %w", poolSize, ErrEmptyPool)
	}

	return int(xxhash.Sum64(key) % uint64(poolSize)), nil
}

// Shard assigns every key, returning the pool index for each in input order.
func Shard(keys [][]byte, poolSize int) ([]int, error) {
	indexes := make([]int, 0, len(keys))
	for _, k := range keys {
		i, err := Assign(k, poolSize)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, i)
	}

	return indexes, nil
}
