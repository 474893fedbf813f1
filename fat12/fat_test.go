package fat12_test

import (
	"testing"

	"github.com/dargueta/fatimg"
	"github.com/dargueta/fatimg/fat12"
	"github.com/dargueta/fatimg/layout"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAllocationTable__BitLayout(t *testing.T) {
	l := layout.Default()
	raw := make([]byte, l.FATSize)
	copy(raw, []byte{0xF0, 0xFF, 0xFF, 0x03, 0x40, 0x00, 0x21, 0x43, 0x65})

	table, err := fat12.DecodeAllocationTable(raw, l)
	require.NoError(t, err)

	assert.EqualValues(t, 0xFF0, table.Get(0))
	assert.EqualValues(t, 0xFFF, table.Get(1))
	assert.EqualValues(t, 0x003, table.Get(2))
	assert.EqualValues(t, 0x004, table.Get(3))
	assert.EqualValues(t, 0x321, table.Get(4))
	assert.EqualValues(t, 0x654, table.Get(5))
	assert.True(t, table.HasMediaDescriptor(0xF0))
	assert.EqualValues(t, l.FATEntries(), table.Len())
}

func TestDecodeAllocationTable__BadLength(t *testing.T) {
	l := layout.Default()

	_, err := fat12.DecodeAllocationTable(make([]byte, l.FATSize-3), l)
	assert.ErrorIs(t, err, fatimg.ErrCorruptImage, "short region")

	_, err = fat12.DecodeAllocationTable(make([]byte, l.FATSize+1), l)
	assert.ErrorIs(t, err, fatimg.ErrCorruptImage, "not a multiple of 3")

	// Longer regions are fine; only the first FATSize bytes are decoded.
	_, err = fat12.DecodeAllocationTable(make([]byte, l.FATSize+3), l)
	assert.NoError(t, err)
}

func TestAllocationTable__EncodeDecode(t *testing.T) {
	l := layout.Default()
	table := fat12.NewAllocationTable(l)
	table.SetMediaDescriptor(l.MediaDescriptor)
	table.Set(2, 3)
	table.Set(3, 0xFF8)
	table.Set(4, fat12.BadCluster)
	table.Set(5, 0xABC)
	table.Set(clusterOf(l.LastCluster()), fat12.EndOfChain)

	raw := table.Encode()
	require.Len(t, raw, int(l.FATSize))
	assert.Equal(t, []byte{0xF0, 0xFF, 0xFF}, raw[:3])

	decoded, err := fat12.DecodeAllocationTable(raw, l)
	require.NoError(t, err)
	for i := 0; i < table.Len(); i++ {
		if table.Get(fat12.ClusterID(i)) != decoded.Get(fat12.ClusterID(i)) {
			t.Fatalf("entry %d: wrote %#03x, read back %#03x",
				i, table.Get(fat12.ClusterID(i)), decoded.Get(fat12.ClusterID(i)))
		}
	}
	if diff := cmp.Diff(raw, decoded.Encode()); diff != "" {
		t.Errorf("re-encoding differs (-want +got):\n%s", diff)
	}
}

func TestAllocationTable__SetMasksTo12Bits(t *testing.T) {
	table := fat12.NewAllocationTable(layout.Default())
	table.Set(7, 0xF123)
	assert.EqualValues(t, 0x123, table.Get(7))
}

func TestAllocationTable__FindFreeRun(t *testing.T) {
	l := layout.Default()
	table := fat12.NewAllocationTable(l)
	table.SetMediaDescriptor(l.MediaDescriptor)
	total := l.TotalClusters()

	start, ok := table.FindFreeRun(3)
	assert.True(t, ok)
	assert.EqualValues(t, 2, start)

	// Free entries need not be adjacent.
	table.Set(2, fat12.EndOfChain)
	table.Set(4, fat12.EndOfChain)
	start, ok = table.FindFreeRun(2)
	assert.True(t, ok)
	assert.EqualValues(t, 3, start)

	_, ok = table.FindFreeRun(total - 2)
	assert.True(t, ok)
	_, ok = table.FindFreeRun(total - 1)
	assert.False(t, ok)

	start, ok = table.FindFreeRun(0)
	assert.True(t, ok)
	assert.EqualValues(t, 0, start)
}

func TestAllocationTable__FindFreeFrom(t *testing.T) {
	l := layout.Default()
	table := fat12.NewAllocationTable(l)
	table.SetMediaDescriptor(l.MediaDescriptor)

	c, ok := table.FindFreeFrom(0)
	assert.True(t, ok)
	assert.EqualValues(t, 2, c, "reserved entries are never returned")

	table.Set(10, fat12.BadCluster)
	c, ok = table.FindFreeFrom(10)
	assert.True(t, ok)
	assert.EqualValues(t, 11, c)

	last := clusterOf(l.LastCluster())
	table.Set(last, fat12.EndOfChain)
	_, ok = table.FindFreeFrom(last)
	assert.False(t, ok, "search must not wrap around")
}

func TestAllocationTable__CountFree(t *testing.T) {
	l := layout.Default()
	table := fat12.NewAllocationTable(l)
	table.SetMediaDescriptor(l.MediaDescriptor)
	assert.Equal(t, int(l.TotalClusters()), table.CountFree())

	table.Set(2, fat12.EndOfChain)
	table.Set(100, fat12.BadCluster)
	assert.Equal(t, int(l.TotalClusters())-2, table.CountFree())
}

func buildChain(table *fat12.AllocationTable, clusters ...fat12.ClusterID) {
	for i := 0; i < len(clusters)-1; i++ {
		table.Set(clusters[i], uint16(clusters[i+1]))
	}
	table.Set(clusters[len(clusters)-1], fat12.EndOfChain)
}

func TestAllocationTable__FreeChain(t *testing.T) {
	l := layout.Default()
	table := fat12.NewAllocationTable(l)
	table.SetMediaDescriptor(l.MediaDescriptor)
	before := table.CountFree()

	buildChain(table, 5, 9, 6)
	require.Equal(t, before-3, table.CountFree())

	chain, err := table.Chain(5, 1025)
	require.NoError(t, err)
	assert.Equal(t, []fat12.ClusterID{5, 9, 6}, chain)

	require.NoError(t, table.FreeChain(5, 1025))
	assert.Equal(t, before, table.CountFree())
	assert.True(t, table.IsFree(9))
}

func TestAllocationTable__FreeChainEmptyFile(t *testing.T) {
	l := layout.Default()
	table := fat12.NewAllocationTable(l)
	assert.NoError(t, table.FreeChain(0, 0))
}

func TestAllocationTable__FreeChainBroken(t *testing.T) {
	l := layout.Default()
	table := fat12.NewAllocationTable(l)
	table.SetMediaDescriptor(l.MediaDescriptor)
	buildChain(table, 5, 6)
	snapshot := table.Encode()

	// The stored size says three clusters but the chain ends after two.
	err := table.FreeChain(5, 3*512)
	assert.ErrorIs(t, err, fatimg.ErrBrokenChain)
	assert.Equal(t, snapshot, table.Encode(), "table must be unchanged after a broken chain")

	// A chain running into a free entry is broken too.
	table.Set(6, 7)
	err = table.FreeChain(5, 4*512)
	assert.ErrorIs(t, err, fatimg.ErrBrokenChain)

	// So is a file with data but no start cluster.
	err = table.FreeChain(0, 1)
	assert.ErrorIs(t, err, fatimg.ErrBrokenChain)
}

func TestAllocationTable__ChainLoop(t *testing.T) {
	l := layout.Default()
	table := fat12.NewAllocationTable(l)
	table.Set(5, 6)
	table.Set(6, 5)

	_, err := table.Chain(5, 3*512)
	assert.ErrorIs(t, err, fatimg.ErrBrokenChain)
}

func TestAllocationTable__ChainLongerThanSize(t *testing.T) {
	l := layout.Default()
	table := fat12.NewAllocationTable(l)
	buildChain(table, 5, 6, 7)

	// Only the clusters the size calls for are returned; the mismatch is logged.
	chain, err := table.Chain(5, 100)
	require.NoError(t, err)
	assert.Equal(t, []fat12.ClusterID{5}, chain)
}

func TestIsEndOfChain(t *testing.T) {
	assert.False(t, fat12.IsEndOfChain(0))
	assert.False(t, fat12.IsEndOfChain(0xFF6))
	assert.False(t, fat12.IsEndOfChain(fat12.BadCluster))
	for v := uint16(0xFF8); v <= 0xFFF; v++ {
		assert.True(t, fat12.IsEndOfChain(v))
	}
}

func clusterOf(c uint) fat12.ClusterID {
	return fat12.ClusterID(c)
}
