package fat12

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dargueta/fatimg"
	"github.com/dargueta/fatimg/common/blockcache"
	"github.com/dargueta/fatimg/layout"
	log "github.com/dsoprea/go-logging"
)

var volumeLogger = log.NewLogger("fat12.volume")

// Volume is an open FAT12 image. Every mutating operation validates first,
// changes the in-memory tables and the cached image, and then writes everything
// out in a single flush. If anything fails before the flush, the pending
// changes are thrown away and the tables are reloaded, so the image on disk is
// never partially updated.
//
// A Volume assumes it's the only thing accessing the image.
type Volume struct {
	layout    layout.Layout
	cache     *blockcache.BlockCache
	fat       *AllocationTable
	directory *DirectoryTable
	now       func() time.Time
}

type Option func(*Volume)

// WithClock overrides the clock used to timestamp new entries.
func WithClock(now func() time.Time) Option {
	return func(v *Volume) {
		v.now = now
	}
}

// Open loads the allocation table and directory of the image in `stream`. The
// primary FAT is authoritative; if the mirror differs, a warning is logged.
func Open(stream io.ReadWriteSeeker, l layout.Layout, options ...Option) (*Volume, error) {
	err := l.Validate()
	if err != nil {
		return nil, err
	}

	v := &Volume{
		layout: l,
		cache:  blockcache.WrapStream(stream, l.BytesPerSector, l.TotalSectors()),
		now:    time.Now,
	}
	for _, option := range options {
		option(v)
	}

	err = v.reload()
	if err != nil {
		return nil, err
	}

	// A different but valid media byte means the image was made with another
	// layout. Anything else is left for Check to report.
	media := v.fat.Get(0)
	if media&0xF00 == 0xF00 && media&0xFF >= 0xF0 && uint8(media) != l.MediaDescriptor {
		return nil, fatimg.ErrWrongMediumType.WithMessage(
			fmt.Sprintf(
				"image has media descriptor %#02x, layout %q expects %#02x",
				media&0xFF,
				l.Slug,
				l.MediaDescriptor))
	}
	return v, nil
}

// reload replaces the in-memory tables with what's in the cache.
func (v *Volume) reload() error {
	primary, err := v.readRegion(v.layout.FATOffset, v.layout.FATSize)
	if err != nil {
		return err
	}
	fat, err := DecodeAllocationTable(primary, v.layout)
	if err != nil {
		return err
	}

	mirror, err := v.readRegion(v.layout.MirrorOffset, v.layout.FATSize)
	if err != nil {
		return err
	}
	if !bytes.Equal(primary, mirror) {
		volumeLogger.Warningf(nil, "mirror FAT differs from the primary; using the primary")
	}

	rawDirectory, err := v.readRegion(v.layout.DirectoryOffset, v.layout.DirectorySize())
	if err != nil {
		return err
	}
	directory, err := LoadDirectoryTable(rawDirectory, v.layout.DirectorySlots)
	if err != nil {
		return err
	}

	v.fat = fat
	v.directory = directory
	return nil
}

func (v *Volume) readRegion(offset, size int64) ([]byte, error) {
	buffer := make([]byte, size)
	_, err := v.cache.ReadAt(buffer, offset)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

// commit writes both FAT copies and the directory into the cache, then flushes
// every dirty block to the image.
func (v *Volume) commit() error {
	encodedFAT := v.fat.Encode()
	_, err := v.cache.WriteAt(encodedFAT, v.layout.FATOffset)
	if err != nil {
		return err
	}
	_, err = v.cache.WriteAt(encodedFAT, v.layout.MirrorOffset)
	if err != nil {
		return err
	}

	region, err := v.readRegion(v.layout.DirectoryOffset, v.layout.DirectorySize())
	if err != nil {
		return err
	}
	err = v.directory.Encode(region)
	if err != nil {
		return err
	}
	_, err = v.cache.WriteAt(region, v.layout.DirectoryOffset)
	if err != nil {
		return err
	}

	return v.cache.Flush()
}

// abort throws away pending changes and returns `cause`.
func (v *Volume) abort(cause error) error {
	v.cache.Discard()
	err := v.reload()
	if err != nil {
		volumeLogger.Warningf(nil, "failed to reload tables after an aborted operation: %v", err)
	}
	return cause
}

func (v *Volume) Layout() layout.Layout {
	return v.layout
}

// FreeClusters gives the number of unallocated data clusters.
func (v *Volume) FreeClusters() int {
	return v.fat.CountFree()
}

// List returns the active directory entries in slot order.
func (v *Volume) List() []DirectoryEntry {
	return v.directory.Entries()
}

// Stat returns the active entry named `name`.
func (v *Volume) Stat(name ShortName) (DirectoryEntry, error) {
	handle, ok := v.directory.FindActive(name)
	if !ok {
		return DirectoryEntry{}, fatimg.ErrNotFound.WithMessage(name.String())
	}
	return handle.Entry, nil
}

// Save stores `data` as a new file named `name`. No check is made for an
// existing entry with the same name.
//
// The name, free space and a free directory slot are all verified before
// anything is modified. An empty file gets no clusters and a first cluster of 0.
func (v *Volume) Save(name ShortName, data []byte) error {
	err := name.Validate()
	if err != nil {
		return err
	}
	if uint64(len(data)) > math.MaxUint32 {
		return fatimg.ErrFileTooLarge.WithMessage(
			fmt.Sprintf("%s is %d bytes", name, len(data)))
	}

	clusterBytes := int(v.layout.BytesPerCluster)
	count := v.layout.ClustersFor(uint(len(data)))

	start, ok := v.fat.FindFreeRun(count)
	if !ok {
		return fatimg.ErrNoSpace.WithMessage(
			fmt.Sprintf(
				"%s needs %d clusters, %d free",
				name,
				count,
				v.fat.CountFree()))
	}

	slot, ok := v.directory.FindFreeSlot(0)
	if !ok {
		return fatimg.ErrDirectoryFull.WithMessage(
			fmt.Sprintf("no free slot for %s among %d", name, v.directory.Len()))
	}

	v.directory.AddEntry(slot, name, uint32(len(data)), start, v.now())

	current := start
	for i := uint(0); i < count; i++ {
		chunkStart := int(i) * clusterBytes
		chunkEnd := chunkStart + clusterBytes
		if chunkEnd > len(data) {
			chunkEnd = len(data)
		}

		_, err := v.cache.WriteAt(data[chunkStart:chunkEnd], v.layout.ClusterOffset(uint(current)))
		if err != nil {
			return v.abort(err)
		}

		if i == count-1 {
			v.fat.Set(current, EndOfChain)
			break
		}

		next, ok := v.fat.FindFreeFrom(current + 1)
		if !ok {
			// FindFreeRun already counted enough free clusters from `start`.
			return v.abort(fatimg.ErrNoSpace.WithMessage(
				fmt.Sprintf("ran out of clusters after %d of %d", i+1, count)))
		}
		v.fat.Set(current, uint16(next))
		current = next
	}

	err = v.commit()
	if err != nil {
		return v.abort(err)
	}

	volumeLogger.Debugf(
		nil, "saved %s: %d bytes, %d clusters from %d, slot %d", name, len(data), count, start, slot)
	return nil
}

// Load returns the contents of the file named `name`.
func (v *Volume) Load(name ShortName) ([]byte, error) {
	handle, ok := v.directory.FindActive(name)
	if !ok {
		return nil, fatimg.ErrNotFound.WithMessage(name.String())
	}

	size := int(handle.Entry.Size)
	chain, err := v.fat.Chain(handle.Entry.FirstCluster, uint(size))
	if err != nil {
		return nil, err
	}

	data := make([]byte, size)
	clusterBytes := int(v.layout.BytesPerCluster)
	for i, cluster := range chain {
		chunkStart := i * clusterBytes
		chunkEnd := chunkStart + clusterBytes
		if chunkEnd > size {
			chunkEnd = size
		}
		_, err = v.cache.ReadAt(data[chunkStart:chunkEnd], v.layout.ClusterOffset(uint(cluster)))
		if err != nil {
			return nil, err
		}
	}

	volumeLogger.Debugf(
		nil, "loaded %s: %d bytes from cluster %d", name, size, handle.Entry.FirstCluster)
	return data, nil
}

// Delete removes the file named `name` and frees its clusters. If its chain is
// shorter than its size says, [fatimg.ErrBrokenChain] is returned and nothing
// changes.
func (v *Volume) Delete(name ShortName) error {
	start, size, ok := v.directory.DeleteEntry(name)
	if !ok {
		return fatimg.ErrNotFound.WithMessage(name.String())
	}

	err := v.fat.FreeChain(start, uint(size))
	if err != nil {
		return v.abort(err)
	}

	err = v.commit()
	if err != nil {
		return v.abort(err)
	}

	volumeLogger.Debugf(nil, "deleted %s: %d bytes from cluster %d", name, size, start)
	return nil
}

// WriteCluster writes `data` at the start of data cluster `cluster`, bypassing
// the allocation table and the directory. `data` can't be longer than a
// cluster.
func (v *Volume) WriteCluster(cluster ClusterID, data []byte) error {
	if !v.layout.IsDataCluster(uint(cluster)) {
		return fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"cluster %d not in [%d, %d]",
				cluster,
				v.layout.FirstDataCluster,
				v.layout.LastCluster()))
	}
	if len(data) > int(v.layout.BytesPerCluster) {
		return fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"%d bytes won't fit in a %d-byte cluster",
				len(data),
				v.layout.BytesPerCluster))
	}

	_, err := v.cache.WriteAt(data, v.layout.ClusterOffset(uint(cluster)))
	if err != nil {
		return v.abort(err)
	}
	err = v.cache.Flush()
	if err != nil {
		return v.abort(err)
	}
	return nil
}
