package storage

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/equinor/geomodelgrids-query/internal/model"
)

// blockCache reads a block on its first get and keeps it for later gets.
// TileLoader.Load gets every block once while building the Model, so all
// block reads happen inside Load, not on first query. Sized per model rather than globally since a model's own block count
// is small and bounded, unlike the cross-request cardinality a
// general-purpose response cache has to defend against.
type blockCache struct {
	cache *lru.Cache[int, *model.Block]
	load  func(blockIndex int) (*model.Block, error)
}

func newBlockCache(size int, load func(blockIndex int) (*model.Block, error)) (*blockCache, error) {
	c, err := lru.New[int, *model.Block](size)
	if err != nil {
		return nil, err
	}
	return &blockCache{cache: c, load: load}, nil
}

func (b *blockCache) get(blockIndex int) (*model.Block, error) {
	if blk, ok := b.cache.Get(blockIndex); ok {
		return blk, nil
	}
	blk, err := b.load(blockIndex)
	if err != nil {
		return nil, err
	}
	b.cache.Add(blockIndex, blk)
	return blk, nil
}
