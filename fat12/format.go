package fat12

import (
	"io"

	"github.com/dargueta/fatimg/common/blockcache"
	"github.com/dargueta/fatimg/layout"
)

// Format initializes a blank image in `stream`: every byte of the image is
// zeroed, then both FAT copies get the media descriptor pattern in their
// reserved entries. The directory is left empty.
func Format(stream io.ReadWriteSeeker, l layout.Layout) error {
	err := l.Validate()
	if err != nil {
		return err
	}

	cache := blockcache.WrapStream(stream, l.BytesPerSector, l.TotalSectors())

	// Marking a block dirty without loading it keeps the zeroes it was created
	// with.
	err = cache.MarkBlockRangeDirty(0, cache.TotalBlocks())
	if err != nil {
		return err
	}

	table := NewAllocationTable(l)
	table.SetMediaDescriptor(l.MediaDescriptor)
	encoded := table.Encode()

	_, err = cache.WriteAt(encoded, l.FATOffset)
	if err != nil {
		return err
	}
	_, err = cache.WriteAt(encoded, l.MirrorOffset)
	if err != nil {
		return err
	}

	volumeLogger.Debugf(nil, "formatting %d-byte image with layout %q", l.ImageSize, l.Slug)
	return cache.Flush()
}
