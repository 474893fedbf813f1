// Package blockcache provides a block-oriented cache over a disk image. Reads
// pull blocks in from the backing storage on demand, writes only touch memory
// and mark blocks dirty, and nothing reaches the backing storage until Flush is
// called.
//
// All block indices begin at 0.

package blockcache

import (
	"fmt"
	"io"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/fatimg"
	c "github.com/dargueta/fatimg/common"
)

// FetchBlockCallback is a pointer to a function that writes the contents of a
// single block from the backing storage into `buffer`. The following guarantees
// apply:
//
// - `blockIndex` is in the range [0, TotalBlocks).
// - `buffer` is always BytesPerBlock bytes.
type FetchBlockCallback func(blockIndex c.LogicalBlock, buffer []byte) error

// FlushBlockCallback is a pointer to a function that writes the contents of the
// given buffer to a block in the backing storage. All restrictions and
// guarantees in [FetchBlockCallback] apply here too.
type FlushBlockCallback func(blockIndex c.LogicalBlock, buffer []byte) error

type BlockCache struct {
	loadedBlocks  bitmap.Bitmap
	dirtyBlocks   bitmap.Bitmap
	fetch         FetchBlockCallback
	flush         FlushBlockCallback
	bytesPerBlock uint
	totalBlocks   uint
	data          []byte
}

// New creates a new BlockCache of a fixed size. `fetchCb` reads a single block
// from the backing storage and `flushCb` writes one back.
func New(
	bytesPerBlock uint,
	totalBlocks uint,
	fetchCb FetchBlockCallback,
	flushCb FlushBlockCallback,
) *BlockCache {
	return &BlockCache{
		loadedBlocks:  bitmap.New(int(totalBlocks)),
		dirtyBlocks:   bitmap.New(int(totalBlocks)),
		data:          make([]byte, int(bytesPerBlock*totalBlocks)),
		fetch:         fetchCb,
		flush:         flushCb,
		bytesPerBlock: bytesPerBlock,
		totalBlocks:   totalBlocks,
	}
}

// WrapStream creates a [BlockCache] over the first `totalBlocks` blocks of any
// [io.ReadWriteSeeker].
//
// Reads that run past the physical end of the stream are zero-filled, so a
// freshly created (empty) file can be wrapped and formatted.
func WrapStream(
	stream io.ReadWriteSeeker,
	bytesPerBlock uint,
	totalBlocks uint,
) *BlockCache {
	fetchCb := func(block c.LogicalBlock, buffer []byte) error {
		err := seekToBlock(stream, block, c.LogicalBlock(totalBlocks), bytesPerBlock)
		if err != nil {
			return err
		}

		n, err := io.ReadFull(stream, buffer)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			for i := n; i < len(buffer); i++ {
				buffer[i] = 0
			}
			return nil
		}
		return err
	}

	flushCb := func(block c.LogicalBlock, buffer []byte) error {
		err := seekToBlock(stream, block, c.LogicalBlock(totalBlocks), bytesPerBlock)
		if err != nil {
			return err
		}
		_, err = stream.Write(buffer)
		return err
	}
	return New(bytesPerBlock, totalBlocks, fetchCb, flushCb)
}

// seekToBlock sets the stream pointer for a stream to the offset of a block.
func seekToBlock(stream io.Seeker, block, totalBlocks c.LogicalBlock, bytesPerBlock uint) error {
	if block >= totalBlocks {
		return fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"invalid block number: %d not in range [0, %d)",
				block,
				totalBlocks,
			),
		)
	}

	blockOffset := int64(block) * int64(bytesPerBlock)
	_, err := stream.Seek(blockOffset, io.SeekStart)
	return err
}

// BytesPerBlock returns the size of a single block, in bytes.
func (cache *BlockCache) BytesPerBlock() uint {
	return cache.bytesPerBlock
}

// TotalBlocks returns the size of the cache, in blocks.
func (cache *BlockCache) TotalBlocks() uint {
	return cache.totalBlocks
}

// Size gives the size of the cache, in bytes (not blocks!).
func (cache *BlockCache) Size() int64 {
	return int64(cache.bytesPerBlock) * int64(cache.totalBlocks)
}

// checkBlockRange verifies that the blocks [start, start + count) all exist. A
// zero-length range is still required to start at a valid block.
func (cache *BlockCache) checkBlockRange(start c.LogicalBlock, count uint) error {
	if uint(start) >= cache.totalBlocks || uint(start)+count > cache.totalBlocks {
		return fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"can't access %d blocks from block %d; range not in [0, %d)",
				count,
				start,
				cache.totalBlocks,
			),
		)
	}
	return nil
}

// checkByteRange verifies that `length` bytes can be accessed starting at byte
// `offset`, and returns the range of blocks covering them.
func (cache *BlockCache) checkByteRange(offset int64, length int) (c.LogicalBlock, uint, error) {
	if offset < 0 || offset >= cache.Size() || offset+int64(length) > cache.Size() {
		return 0, 0, fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"can't access %d bytes at offset %d; range not in [0, %d)",
				length,
				offset,
				cache.Size(),
			),
		)
	}

	firstBlock := uint(offset) / cache.bytesPerBlock
	if length == 0 {
		return c.LogicalBlock(firstBlock), 0, nil
	}
	lastBlock := (uint(offset) + uint(length) - 1) / cache.bytesPerBlock
	return c.LogicalBlock(firstBlock), lastBlock - firstBlock + 1, nil
}

// blockSlice returns the cache's storage for a block range without loading
// anything.
func (cache *BlockCache) blockSlice(start c.LogicalBlock, count uint) []byte {
	startOffset := uint(start) * cache.bytesPerBlock
	return cache.data[startOffset : startOffset+(count*cache.bytesPerBlock)]
}

// Data returns a slice of the entire cache's data. This requires loading all
// blocks not yet in the cache.
//
// If the returned slice is modified, the modified blocks MUST be marked as
// dirty.
func (cache *BlockCache) Data() ([]byte, error) {
	err := cache.LoadAll()
	if err != nil {
		return nil, err
	}
	return cache.data, nil
}

// loadBlockRange ensures that all blocks in the range [start, start + count) are
// present in the cache, and loads any missing ones from storage.
func (cache *BlockCache) loadBlockRange(start c.LogicalBlock, count uint) error {
	err := cache.checkBlockRange(start, count)
	if err != nil {
		return err
	}

	for blockIndex := int(start); uint(blockIndex) < uint(start)+count; blockIndex++ {
		// Dirty blocks are loaded by definition, so one check is enough.
		if cache.loadedBlocks.Get(blockIndex) {
			continue
		}

		buffer := cache.blockSlice(c.LogicalBlock(blockIndex), 1)
		err = cache.fetch(c.LogicalBlock(blockIndex), buffer)
		if err != nil {
			return fatimg.ErrIOFailed.Wrap(
				fmt.Errorf("failed to load block %d from source: %w", blockIndex, err))
		}

		cache.loadedBlocks.Set(blockIndex, true)
		cache.dirtyBlocks.Set(blockIndex, false)
	}

	return nil
}

// flushBlockRange writes out all dirty blocks (and only dirty blocks) to the
// underlying storage and marks them as clean.
func (cache *BlockCache) flushBlockRange(start c.LogicalBlock, count uint) error {
	err := cache.checkBlockRange(start, count)
	if err != nil {
		return err
	}

	for blockIndex := int(start); uint(blockIndex) < uint(start)+count; blockIndex++ {
		if !cache.dirtyBlocks.Get(blockIndex) {
			continue
		}

		buffer := cache.blockSlice(c.LogicalBlock(blockIndex), 1)
		err = cache.flush(c.LogicalBlock(blockIndex), buffer)
		if err != nil {
			return fatimg.ErrIOFailed.Wrap(
				fmt.Errorf("failed to flush block %d to storage: %w", blockIndex, err))
		}

		cache.dirtyBlocks.Set(blockIndex, false)
	}

	return nil
}

// LoadAll ensures all missing blocks are loaded from storage into the cache.
func (cache *BlockCache) LoadAll() error {
	return cache.loadBlockRange(0, cache.totalBlocks)
}

// Flush flushes all dirty blocks from the cache into storage, and marks them
// as clean.
func (cache *BlockCache) Flush() error {
	if cache.totalBlocks == 0 {
		return nil
	}
	return cache.flushBlockRange(0, cache.totalBlocks)
}

// Discard throws away every pending modification. Dirty blocks are evicted and
// will be fetched from storage again the next time they're accessed.
func (cache *BlockCache) Discard() {
	for i := 0; i < int(cache.totalBlocks); i++ {
		if cache.dirtyBlocks.Get(i) {
			cache.dirtyBlocks.Set(i, false)
			cache.loadedBlocks.Set(i, false)
		}
	}
}

// DirtyBlocks returns the number of blocks waiting to be flushed.
func (cache *BlockCache) DirtyBlocks() int {
	count := 0
	for i := 0; i < int(cache.totalBlocks); i++ {
		if cache.dirtyBlocks.Get(i) {
			count++
		}
	}
	return count
}

// ReadAt implements [io.ReaderAt] over the cache, with `offset` in bytes.
//
// Attempting to read past the end of the cache will result in an error, and
// `buffer` will be left unmodified.
func (cache *BlockCache) ReadAt(buffer []byte, offset int64) (int, error) {
	firstBlock, numBlocks, err := cache.checkByteRange(offset, len(buffer))
	if err != nil {
		return 0, err
	}

	err = cache.loadBlockRange(firstBlock, numBlocks)
	if err != nil {
		return 0, err
	}

	return copy(buffer, cache.data[offset:offset+int64(len(buffer))]), nil
}

// WriteAt implements [io.WriterAt] over the cache, with `offset` in bytes. All
// modified blocks are marked as dirty. Partially overwritten blocks are loaded
// first so that the bytes around the written range are preserved.
//
// Attempting to write past the end of the cache will result in an error, and
// the cache will be left unmodified.
func (cache *BlockCache) WriteAt(buffer []byte, offset int64) (int, error) {
	firstBlock, numBlocks, err := cache.checkByteRange(offset, len(buffer))
	if err != nil {
		return 0, err
	}

	err = cache.loadBlockRange(firstBlock, numBlocks)
	if err != nil {
		return 0, err
	}

	n := copy(cache.data[offset:offset+int64(len(buffer))], buffer)
	for i := uint(0); i < numBlocks; i++ {
		cache.dirtyBlocks.Set(int(firstBlock)+int(i), true)
	}
	return n, nil
}

// MarkBlockRangeDirty marks a range of blocks as modified. They will be written
// out to the backing storage on the next call to [BlockCache.Flush].
func (cache *BlockCache) MarkBlockRangeDirty(start c.LogicalBlock, count uint) error {
	err := cache.checkBlockRange(start, count)
	if err != nil {
		return err
	}

	for i := uint(0); i < count; i++ {
		bitIndex := int(start) + int(i)
		cache.dirtyBlocks.Set(bitIndex, true)
		cache.loadedBlocks.Set(bitIndex, true)
	}
	return nil
}
