// Package fat12 implements the FAT12 engine: the packed allocation table, the
// root directory table, and a Volume that keeps the two consistent while files
// are saved, loaded, and deleted.
package fat12

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/fatimg"
	"github.com/dargueta/fatimg/layout"
	log "github.com/dsoprea/go-logging"
)

type ClusterID uint

const (
	// FreeCluster marks an unallocated entry.
	FreeCluster = 0x000
	// BadCluster marks a cluster that must never be allocated.
	BadCluster = 0xFF7
	// EndOfChain is the canonical end-of-chain marker written when allocating.
	// Any value in [0xFF8, 0xFFF] terminates a chain.
	EndOfChain = 0xFFF

	minEndOfChain = 0xFF8
	entryMask     = 0xFFF
)

var fatLogger = log.NewLogger("fat12.fat")

// AllocationTable is the decoded form of a FAT12 allocation table, one 12-bit
// value per cluster.
type AllocationTable struct {
	entries []uint16
	layout  layout.Layout
}

// NewAllocationTable creates an all-free table sized for the given layout.
func NewAllocationTable(l layout.Layout) *AllocationTable {
	return &AllocationTable{
		entries: make([]uint16, l.FATEntries()),
		layout:  l,
	}
}

// DecodeAllocationTable unpacks the first FATSize bytes of `raw`. `raw` must be
// a multiple of 3 bytes and at least FATSize bytes long.
func DecodeAllocationTable(raw []byte, l layout.Layout) (*AllocationTable, error) {
	if len(raw)%3 != 0 || int64(len(raw)) < l.FATSize {
		return nil, fatimg.ErrCorruptImage.WithMessage(
			fmt.Sprintf(
				"FAT region is %d bytes, expected a multiple of 3 of at least %d",
				len(raw),
				l.FATSize))
	}

	table := NewAllocationTable(l)
	for i := 0; i < len(table.entries); i += 2 {
		group := raw[i/2*3 : i/2*3+3]
		table.entries[i] = uint16(group[0]) | uint16(group[1]&0x0F)<<8
		table.entries[i+1] = uint16(group[1]>>4) | uint16(group[2])<<4
	}
	return table, nil
}

// Encode packs the table into exactly FATSize bytes. The same bytes go to both
// the primary and the mirror copy.
func (table *AllocationTable) Encode() []byte {
	raw := make([]byte, table.layout.FATSize)
	for i := 0; i < len(table.entries); i += 2 {
		a := table.entries[i]
		b := table.entries[i+1]
		raw[i/2*3] = byte(a)
		raw[i/2*3+1] = byte(a>>8)&0x0F | byte(b<<4)
		raw[i/2*3+2] = byte(b >> 4)
	}
	return raw
}

// Len gives the number of entries in the table, including the two reserved ones.
func (table *AllocationTable) Len() int {
	return len(table.entries)
}

// Get returns the value stored for `cluster`. Out-of-range clusters panic.
func (table *AllocationTable) Get(cluster ClusterID) uint16 {
	return table.entries[cluster]
}

// Set stores the low 12 bits of `value` for `cluster`. Out-of-range clusters
// panic.
func (table *AllocationTable) Set(cluster ClusterID, value uint16) {
	table.entries[cluster] = value & entryMask
}

func (table *AllocationTable) IsFree(cluster ClusterID) bool {
	return table.entries[cluster] == FreeCluster
}

func (table *AllocationTable) IsBad(cluster ClusterID) bool {
	return table.entries[cluster] == BadCluster
}

// IsEndOfChain returns true if `value` is one of the end-of-chain markers.
func IsEndOfChain(value uint16) bool {
	return value >= minEndOfChain && value <= entryMask
}

// SetMediaDescriptor writes the reserved entries 0 and 1: 0xF00 | media and the
// end-of-chain marker.
func (table *AllocationTable) SetMediaDescriptor(media uint8) {
	table.entries[0] = 0xF00 | uint16(media)
	table.entries[1] = EndOfChain
}

// HasMediaDescriptor checks that the reserved entries hold the pattern written
// by [AllocationTable.SetMediaDescriptor].
func (table *AllocationTable) HasMediaDescriptor(media uint8) bool {
	return table.entries[0] == 0xF00|uint16(media) && table.entries[1] == EndOfChain
}

// CountFree counts free entries in the allocatable range.
func (table *AllocationTable) CountFree() int {
	free := 0
	for c := table.layout.FirstDataCluster; c <= table.layout.LastCluster(); c++ {
		if table.entries[c] == FreeCluster {
			free++
		}
	}
	return free
}

// FindFreeRun reports whether at least `count` free entries exist in the
// allocatable range. The free entries need not be adjacent. On success it
// returns the first free cluster as a starting point for [FindFreeFrom].
func (table *AllocationTable) FindFreeRun(count uint) (ClusterID, bool) {
	if count == 0 {
		return 0, true
	}

	first := ClusterID(0)
	found := uint(0)
	for c := table.layout.FirstDataCluster; c <= table.layout.LastCluster(); c++ {
		if table.entries[c] != FreeCluster {
			continue
		}
		if found == 0 {
			first = ClusterID(c)
		}
		found++
		if found == count {
			return first, true
		}
	}
	return 0, false
}

// FindFreeFrom returns the first free cluster at or after `start`. The search
// never wraps around.
func (table *AllocationTable) FindFreeFrom(start ClusterID) (ClusterID, bool) {
	c := uint(start)
	if c < table.layout.FirstDataCluster {
		c = table.layout.FirstDataCluster
	}
	for ; c <= table.layout.LastCluster(); c++ {
		if table.entries[c] == FreeCluster {
			return ClusterID(c), true
		}
	}
	return 0, false
}

// walk follows a chain for exactly `steps` clusters and returns them in order.
// A link at a non-final step that doesn't point at a data cluster, or that
// revisits a cluster, is a broken chain.
func (table *AllocationTable) walk(start ClusterID, steps uint) ([]ClusterID, error) {
	clusters := make([]ClusterID, 0, steps)
	visited := bitmap.New(len(table.entries))

	current := start
	for i := uint(0); i < steps; i++ {
		if !table.layout.IsDataCluster(uint(current)) {
			return nil, fatimg.ErrBrokenChain.WithMessage(
				fmt.Sprintf(
					"chain from cluster %d: step %d of %d reaches %#03x, not a data cluster",
					start,
					i+1,
					steps,
					uint(current)))
		}
		if visited.Get(int(current)) {
			return nil, fatimg.ErrBrokenChain.WithMessage(
				fmt.Sprintf("chain from cluster %d loops back to cluster %d", start, current))
		}
		visited.Set(int(current), true)
		clusters = append(clusters, current)

		next := table.entries[current]
		if i == steps-1 {
			if !IsEndOfChain(next) {
				fatLogger.Warningf(
					nil,
					"chain from cluster %d should end at cluster %d but continues to %#03x",
					start,
					current,
					next)
			}
			break
		}
		current = ClusterID(next)
	}
	return clusters, nil
}

// Chain returns the clusters holding a file of `size` bytes starting at
// `start`. Whether the last cluster carries an end-of-chain marker is not
// checked beyond a logged warning.
func (table *AllocationTable) Chain(start ClusterID, size uint) ([]ClusterID, error) {
	return table.walk(start, table.layout.ClustersFor(size))
}

// FreeChain releases every cluster of the chain for a file of `size` bytes
// starting at `start`. The whole chain is walked before anything is zeroed, so
// on error the table is unchanged.
func (table *AllocationTable) FreeChain(start ClusterID, size uint) error {
	clusters, err := table.walk(start, table.layout.ClustersFor(size))
	if err != nil {
		return err
	}
	for _, c := range clusters {
		table.entries[c] = FreeCluster
	}
	return nil
}
