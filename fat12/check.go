package fat12

import (
	"bytes"
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/fatimg"
	"github.com/hashicorp/go-multierror"
)

// Check verifies that the allocation table and the directory agree with each
// other. It returns nil for a consistent image, and otherwise an error matching
// [fatimg.ErrInconsistent] whose cause is a *multierror.Error listing every
// problem found.
//
// The following are checked:
//
//   - The reserved entries hold the media descriptor pattern.
//   - The mirror FAT matches the primary.
//   - Every active entry's chain has exactly as many clusters as its size
//     needs, and ends with an end-of-chain marker.
//   - No cluster belongs to two files.
//   - Every allocated cluster belongs to some file.
func (v *Volume) Check() error {
	var result *multierror.Error

	if !v.fat.HasMediaDescriptor(v.layout.MediaDescriptor) {
		result = multierror.Append(result, fmt.Errorf(
			"reserved FAT entries are %#03x %#03x, expected %#03x %#03x",
			v.fat.Get(0),
			v.fat.Get(1),
			0xF00|uint16(v.layout.MediaDescriptor),
			EndOfChain))
	}

	primary, err := v.readRegion(v.layout.FATOffset, v.layout.FATSize)
	if err != nil {
		return err
	}
	mirror, err := v.readRegion(v.layout.MirrorOffset, v.layout.FATSize)
	if err != nil {
		return err
	}
	if !bytes.Equal(primary, mirror) {
		result = multierror.Append(result, fmt.Errorf("mirror FAT differs from the primary"))
	}

	claimed := bitmap.New(v.fat.Len())
	owners := make(map[ClusterID]ShortName)

	for _, entry := range v.directory.Entries() {
		chain, err := v.fat.Chain(entry.FirstCluster, uint(entry.Size))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", entry.Name, err))
			continue
		}

		if len(chain) > 0 {
			last := chain[len(chain)-1]
			if !IsEndOfChain(v.fat.Get(last)) {
				result = multierror.Append(result, fmt.Errorf(
					"%s: %d bytes need %d clusters but the chain continues past cluster %d",
					entry.Name,
					entry.Size,
					len(chain),
					last))
			}
		} else if entry.FirstCluster != 0 {
			result = multierror.Append(result, fmt.Errorf(
				"%s: empty file has first cluster %d", entry.Name, entry.FirstCluster))
		}

		for _, cluster := range chain {
			if claimed.Get(int(cluster)) {
				result = multierror.Append(result, fmt.Errorf(
					"cluster %d is claimed by both %s and %s", cluster, owners[cluster], entry.Name))
				continue
			}
			claimed.Set(int(cluster), true)
			owners[cluster] = entry.Name
		}
	}

	for c := v.layout.FirstDataCluster; c <= v.layout.LastCluster(); c++ {
		cluster := ClusterID(c)
		if v.fat.IsFree(cluster) || v.fat.IsBad(cluster) || claimed.Get(int(c)) {
			continue
		}
		result = multierror.Append(result, fmt.Errorf(
			"cluster %d is allocated (%#03x) but no file uses it", c, v.fat.Get(cluster)))
	}

	if result.ErrorOrNil() == nil {
		return nil
	}
	volumeLogger.Warningf(nil, "consistency check found %d problems", len(result.Errors))
	return fatimg.ErrInconsistent.Wrap(result)
}
