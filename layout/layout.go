// Package layout describes where each zone of a FAT12 image lives: the primary
// FAT, its mirror, the root directory, and the data area. A Layout is a plain
// immutable value; every component that needs offsets is handed one.
package layout

import (
	"fmt"

	"github.com/dargueta/fatimg"
	c "github.com/dargueta/fatimg/common"
)

// DirentSize is the size of a single on-disk directory record, in bytes.
const DirentSize = 32

// MaxCluster is the highest cluster number a FAT12 link can hold. 0xFF7 and up
// are reserved for the bad-cluster and end-of-chain markers.
const MaxCluster = 0xFF6

// Layout gives the fixed byte offsets and sizes of every zone in an image.
type Layout struct {
	Slug string `csv:"slug"`
	Name string `csv:"name"`

	// ImageSize is the total size of the image file, in bytes. It must be a
	// multiple of BytesPerSector.
	ImageSize      int64 `csv:"image_size"`
	BytesPerSector uint  `csv:"bytes_per_sector"`

	// FATOffset and FATSize give the primary allocation table. FATSize is the
	// length of the packed region the codec reads and writes and must be a
	// multiple of 3; a FAT occupying a whole number of sectors may have a
	// trailing byte or two that are never touched.
	FATOffset int64 `csv:"fat_offset"`
	FATSize   int64 `csv:"fat_size"`
	// MirrorOffset is where the second copy of the FAT starts. It's the same
	// length as the primary.
	MirrorOffset int64 `csv:"mirror_offset"`

	DirectoryOffset int64 `csv:"directory_offset"`
	DirectorySlots  int   `csv:"directory_slots"`

	// DataOffset is the byte offset of cluster FirstDataCluster.
	DataOffset       int64 `csv:"data_offset"`
	BytesPerCluster  uint  `csv:"bytes_per_cluster"`
	FirstDataCluster uint  `csv:"first_data_cluster"`

	// MediaDescriptor is stored in the low byte of FAT entry 0 on format.
	MediaDescriptor uint8  `csv:"media_descriptor"`
	Notes           string `csv:"notes"`
}

// TotalClusters gives the number of whole clusters that fit in the data area.
func (l Layout) TotalClusters() uint {
	if l.DataOffset >= l.ImageSize || l.BytesPerCluster == 0 {
		return 0
	}
	return uint(l.ImageSize-l.DataOffset) / l.BytesPerCluster
}

// LastCluster gives the highest cluster number that maps to the data area.
func (l Layout) LastCluster() uint {
	return l.FirstDataCluster + l.TotalClusters() - 1
}

// FATEntries gives the number of 12-bit entries in the packed FAT region.
func (l Layout) FATEntries() uint {
	return uint(l.FATSize/3) * 2
}

// DirectorySize gives the size of the root directory region, in bytes.
func (l Layout) DirectorySize() int64 {
	return int64(l.DirectorySlots) * DirentSize
}

// TotalSectors gives the size of the image in sectors.
func (l Layout) TotalSectors() uint {
	return uint(l.ImageSize / int64(l.BytesPerSector))
}

// ClusterOffset returns the byte offset of the first byte of `cluster`. The
// cluster must be in [FirstDataCluster, LastCluster].
func (l Layout) ClusterOffset(cluster uint) int64 {
	return l.DataOffset + int64(cluster-l.FirstDataCluster)*int64(l.BytesPerCluster)
}

// IsDataCluster returns true if `cluster` maps to the data area.
func (l Layout) IsDataCluster(cluster uint) bool {
	return cluster >= l.FirstDataCluster && cluster <= l.LastCluster()
}

// ClustersFor gives the number of clusters needed to hold `size` bytes.
func (l Layout) ClustersFor(size uint) uint {
	return c.CeilDiv(size, l.BytesPerCluster)
}

// Validate checks that the layout describes a usable FAT12 image. It returns
// an error wrapping [fatimg.ErrInvalidArgument] describing the first problem
// found.
func (l Layout) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("invalid layout %q: ", l.Slug) + fmt.Sprintf(format, args...))
	}

	if l.BytesPerSector == 0 || l.BytesPerCluster == 0 {
		return fail("sector and cluster sizes must be nonzero")
	}
	if l.ImageSize <= 0 || l.ImageSize%int64(l.BytesPerSector) != 0 {
		return fail(
			"image size %d is not a positive multiple of the sector size %d",
			l.ImageSize,
			l.BytesPerSector)
	}
	if l.FATSize <= 0 || l.FATSize%3 != 0 {
		return fail("FAT size %d is not a positive multiple of 3", l.FATSize)
	}
	if l.DirectorySlots <= 0 {
		return fail("directory must have at least one slot")
	}
	if l.FirstDataCluster < 2 {
		return fail("clusters 0 and 1 are reserved, got first data cluster %d", l.FirstDataCluster)
	}
	if l.MediaDescriptor < 0xF0 {
		return fail("media descriptor %#02x is not in [0xf0, 0xff]", l.MediaDescriptor)
	}

	if l.FATOffset < 0 ||
		l.FATOffset+l.FATSize > l.MirrorOffset ||
		l.MirrorOffset+l.FATSize > l.DirectoryOffset ||
		l.DirectoryOffset+l.DirectorySize() > l.DataOffset ||
		l.DataOffset >= l.ImageSize {
		return fail(
			"zones overlap or are out of order: FAT %d+%d, mirror %d+%d, directory %d+%d, data %d, image %d",
			l.FATOffset,
			l.FATSize,
			l.MirrorOffset,
			l.FATSize,
			l.DirectoryOffset,
			l.DirectorySize(),
			l.DataOffset,
			l.ImageSize)
	}

	if l.TotalClusters() == 0 {
		return fail("data area holds no clusters")
	}
	if l.LastCluster() >= l.FATEntries() {
		return fail(
			"FAT has %d entries but the data area needs clusters up to %d",
			l.FATEntries(),
			l.LastCluster())
	}
	if l.LastCluster() > MaxCluster {
		return fail("last cluster %#03x exceeds the FAT12 maximum %#03x", l.LastCluster(), MaxCluster)
	}
	return nil
}
