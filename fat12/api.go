package fat12

import "github.com/dargueta/fatimg/layout"

// ReadingVolume is the interface for volumes supporting read operations.
type ReadingVolume interface {
	Layout() layout.Layout
	// List returns the active directory entries in slot order.
	List() []DirectoryEntry
	Stat(name ShortName) (DirectoryEntry, error)
	// Load returns the contents of the file with the given name.
	Load(name ShortName) ([]byte, error)
	FreeClusters() int
	// Check verifies that the allocation table and the directory agree.
	Check() error
}

// WritingVolume is the interface for volumes supporting write operations. Every
// call either updates the image completely or leaves it untouched.
type WritingVolume interface {
	// Save stores a new file. The caller must delete any existing file with the
	// same name first.
	Save(name ShortName, data []byte) error
	Delete(name ShortName) error
	// WriteCluster writes raw bytes into a data cluster, bypassing the
	// allocation table and the directory.
	WriteCluster(cluster ClusterID, data []byte) error
}

type ReadWriteVolume interface {
	ReadingVolume
	WritingVolume
}

var _ ReadWriteVolume = (*Volume)(nil)
