package fat12_test

import (
	"errors"
	"testing"

	"github.com/dargueta/fatimg"
	"github.com/dargueta/fatimg/fat12"
	"github.com/dargueta/fatimg/layout"
	fatimgtest "github.com/dargueta/fatimg/testing"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corruptFAT applies `mutate` to both FAT copies of a raw image, or only the
// primary if `mirrorToo` is false.
func corruptFAT(
	t *testing.T,
	image []byte,
	l layout.Layout,
	mirrorToo bool,
	mutate func(*fat12.AllocationTable),
) {
	bases := []int64{l.FATOffset}
	if mirrorToo {
		bases = append(bases, l.MirrorOffset)
	}
	for _, base := range bases {
		table, err := fat12.DecodeAllocationTable(image[base:base+l.FATSize], l)
		require.NoError(t, err)
		mutate(table)
		copy(image[base:base+l.FATSize], table.Encode())
	}
}

func checkFindings(t *testing.T, image []byte, l layout.Layout) string {
	volume, err := fat12.Open(fatimgtest.NewImageStream(image), l)
	require.NoError(t, err)

	err = volume.Check()
	require.ErrorIs(t, err, fatimg.ErrInconsistent)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "findings must be a multierror")
	return err.Error()
}

func TestCheck__Clean(t *testing.T) {
	l := layout.Default()
	_, volume := fatimgtest.OpenFormattedImage(t, l)
	require.NoError(t, volume.Save(fat12.ParseShortName("A.TXT"), make([]byte, 2000)))
	require.NoError(t, volume.Save(fat12.ParseShortName("B.TXT"), nil))
	assert.NoError(t, volume.Check())
}

func TestCheck__Orphan(t *testing.T) {
	l := layout.Default()
	image, _ := fatimgtest.NewFormattedImage(t, l)
	corruptFAT(t, image, l, true, func(table *fat12.AllocationTable) {
		table.Set(100, fat12.EndOfChain)
	})

	assert.Contains(t, checkFindings(t, image, l), "cluster 100 is allocated")
}

func TestCheck__CrossLinked(t *testing.T) {
	l := layout.Default()
	image, volume := fatimgtest.OpenFormattedImage(t, l)
	require.NoError(t, volume.Save(fat12.ParseShortName("A"), make([]byte, 1024)))
	require.NoError(t, volume.Save(fat12.ParseShortName("B"), make([]byte, 1024)))

	// Point B's first cluster at A's second, then free B's own second cluster.
	corruptFAT(t, image, l, true, func(table *fat12.AllocationTable) {
		table.Set(4, 3)
		table.Set(5, fat12.FreeCluster)
	})

	findings := checkFindings(t, image, l)
	assert.Contains(t, findings, "cluster 3 is claimed by both A and B")
}

func TestCheck__MirrorDrift(t *testing.T) {
	l := layout.Default()
	image, _ := fatimgtest.NewFormattedImage(t, l)
	image[l.MirrorOffset+l.FATSize-1] = 0x12

	assert.Contains(t, checkFindings(t, image, l), "mirror FAT differs")
}

func TestCheck__ChainTooLong(t *testing.T) {
	l := layout.Default()
	image, volume := fatimgtest.OpenFormattedImage(t, l)
	require.NoError(t, volume.Save(fat12.ParseShortName("A"), make([]byte, 512)))

	corruptFAT(t, image, l, true, func(table *fat12.AllocationTable) {
		table.Set(2, 3)
		table.Set(3, fat12.EndOfChain)
	})

	findings := checkFindings(t, image, l)
	assert.Contains(t, findings, "continues past cluster 2")
	assert.Contains(t, findings, "cluster 3 is allocated")
}

func TestCheck__MissingMediaDescriptor(t *testing.T) {
	l := layout.Default()
	image, _ := fatimgtest.NewFormattedImage(t, l)
	corruptFAT(t, image, l, true, func(table *fat12.AllocationTable) {
		table.Set(0, 0)
		table.Set(1, 0)
	})

	assert.Contains(t, checkFindings(t, image, l), "reserved FAT entries")
}
