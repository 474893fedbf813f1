package fat12

import (
	"encoding/binary"
	"time"

	"github.com/dargueta/fatimg"
	"github.com/dargueta/fatimg/layout"
	"github.com/go-restruct/restruct"
)

const (
	AttrReadOnly    = 0x01
	AttrHidden      = 0x02
	AttrSystem      = 0x04
	AttrVolumeLabel = 0x08
	AttrDirectory   = 0x10

	// AttrArchived is set whenever an entry is created or modified. It's the
	// attribute given to every file this package writes.
	AttrArchived = 0x20
)

// RawDirent is the on-disk representation of a directory record.
type RawDirent struct {
	Name         [8]byte
	Extension    [3]byte
	Attributes   uint8
	Reserved     [10]byte
	Time         uint16
	Date         uint16
	FirstCluster uint16
	Size         uint32
}

// DirectoryEntry is a decoded directory record.
type DirectoryEntry struct {
	Name         ShortName
	Attributes   uint8
	Time         uint16
	Date         uint16
	FirstCluster ClusterID
	Size         uint32
}

// ModTime returns the last-modified timestamp, in local time.
func (entry DirectoryEntry) ModTime() time.Time {
	return UnpackTimestamp(entry.Date, entry.Time)
}

// DecodeDirent unpacks a single 32-byte record.
func DecodeDirent(data []byte) (DirectoryEntry, error) {
	if len(data) < layout.DirentSize {
		return DirectoryEntry{}, fatimg.ErrCorruptImage.WithMessage("truncated directory record")
	}

	var raw RawDirent
	err := restruct.Unpack(data[:layout.DirentSize], binary.LittleEndian, &raw)
	if err != nil {
		return DirectoryEntry{}, fatimg.ErrCorruptImage.Wrap(err)
	}

	entry := DirectoryEntry{
		Attributes:   raw.Attributes,
		Time:         raw.Time,
		Date:         raw.Date,
		FirstCluster: ClusterID(raw.FirstCluster),
		Size:         raw.Size,
	}
	copy(entry.Name[:8], raw.Name[:])
	copy(entry.Name[8:], raw.Extension[:])
	return entry, nil
}

// Encode packs the entry into a 32-byte record. The reserved bytes are zero.
func (entry DirectoryEntry) Encode() ([]byte, error) {
	raw := RawDirent{
		Attributes:   entry.Attributes,
		Time:         entry.Time,
		Date:         entry.Date,
		FirstCluster: uint16(entry.FirstCluster),
		Size:         entry.Size,
	}
	copy(raw.Name[:], entry.Name[:8])
	copy(raw.Extension[:], entry.Name[8:])

	data, err := restruct.Pack(binary.LittleEndian, &raw)
	if err != nil {
		return nil, fatimg.ErrInvalidArgument.Wrap(err)
	}
	return data, nil
}
