package fat12

import (
	"fmt"
	"time"

	"github.com/dargueta/fatimg"
	"github.com/dargueta/fatimg/layout"
	"github.com/noxer/bytewriter"
)

type SlotState int

const (
	// SlotEmpty is a slot that has never been used. It ends the directory: every
	// slot after it is also treated as empty.
	SlotEmpty SlotState = iota
	// SlotDeleted is a slot whose entry was deleted. It can be reused.
	SlotDeleted
	SlotActive
)

func (state SlotState) String() string {
	switch state {
	case SlotEmpty:
		return "empty"
	case SlotDeleted:
		return "deleted"
	case SlotActive:
		return "active"
	default:
		return fmt.Sprintf("SlotState(%d)", int(state))
	}
}

// Slot is one position in the directory table. Entry is only meaningful when
// State is SlotActive.
type Slot struct {
	State SlotState
	Entry DirectoryEntry
}

// FileHandle identifies an active entry and the slot it lives in.
type FileHandle struct {
	Index int
	Entry DirectoryEntry
}

// DirectoryTable is the fixed-size array of root directory slots.
type DirectoryTable struct {
	slots []Slot
}

// LoadDirectoryTable classifies `slotCount` records from the start of `raw`.
// Records after the first empty slot are not parsed.
func LoadDirectoryTable(raw []byte, slotCount int) (*DirectoryTable, error) {
	if len(raw) < slotCount*layout.DirentSize {
		return nil, fatimg.ErrCorruptImage.WithMessage(
			fmt.Sprintf(
				"directory region is %d bytes, need %d for %d slots",
				len(raw),
				slotCount*layout.DirentSize,
				slotCount))
	}

	table := &DirectoryTable{slots: make([]Slot, slotCount)}
	for i := 0; i < slotCount; i++ {
		record := raw[i*layout.DirentSize : (i+1)*layout.DirentSize]
		switch record[0] {
		case 0x00:
			return table, nil
		case deletedMarker:
			table.slots[i].State = SlotDeleted
		default:
			entry, err := DecodeDirent(record)
			if err != nil {
				return nil, err
			}
			table.slots[i] = Slot{State: SlotActive, Entry: entry}
		}
	}
	return table, nil
}

// Len gives the capacity of the table.
func (table *DirectoryTable) Len() int {
	return len(table.slots)
}

func (table *DirectoryTable) Slot(index int) Slot {
	return table.slots[index]
}

// FindFreeSlot returns the first empty or deleted slot at or after `start`.
func (table *DirectoryTable) FindFreeSlot(start int) (int, bool) {
	for i := start; i < len(table.slots); i++ {
		if table.slots[i].State != SlotActive {
			return i, true
		}
	}
	return 0, false
}

// AddEntry makes slot `index` an active file entry stamped with `modTime`.
// Duplicate names aren't checked for; the caller must delete any existing
// entry of the same name first.
func (table *DirectoryTable) AddEntry(
	index int,
	name ShortName,
	size uint32,
	firstCluster ClusterID,
	modTime time.Time,
) {
	table.slots[index] = Slot{
		State: SlotActive,
		Entry: DirectoryEntry{
			Name:         name,
			Attributes:   AttrArchived,
			Time:         PackTime(modTime),
			Date:         PackDate(modTime),
			FirstCluster: firstCluster,
			Size:         size,
		},
	}
}

// FindActive looks up an active entry by its packed name.
func (table *DirectoryTable) FindActive(name ShortName) (FileHandle, bool) {
	for i, slot := range table.slots {
		switch slot.State {
		case SlotEmpty:
			return FileHandle{}, false
		case SlotActive:
			if slot.Entry.Name == name {
				return FileHandle{Index: i, Entry: slot.Entry}, true
			}
		}
	}
	return FileHandle{}, false
}

// DeleteEntry marks the active entry with the given name as deleted and returns
// its first cluster and size, so the caller can free its chain.
func (table *DirectoryTable) DeleteEntry(name ShortName) (ClusterID, uint32, bool) {
	handle, ok := table.FindActive(name)
	if !ok {
		return 0, 0, false
	}
	table.slots[handle.Index] = Slot{State: SlotDeleted}
	return handle.Entry.FirstCluster, handle.Entry.Size, true
}

// Entries returns the active entries in slot order.
func (table *DirectoryTable) Entries() []DirectoryEntry {
	entries := make([]DirectoryEntry, 0, len(table.slots))
	for _, slot := range table.slots {
		if slot.State == SlotEmpty {
			break
		}
		if slot.State == SlotActive {
			entries = append(entries, slot.Entry)
		}
	}
	return entries
}

// Encode writes the table into `region`, the raw directory area. Slots are
// written up to and including the first empty one. All 32 bytes of that first
// empty slot are overwritten with zeroes, not just its first byte, so a slot
// freed from the end of the table can't keep stale bytes behind the end marker.
// Bytes past it are left alone.
func (table *DirectoryTable) Encode(region []byte) error {
	writer := bytewriter.New(region)
	deleted := make([]byte, layout.DirentSize)
	deleted[0] = deletedMarker
	empty := make([]byte, layout.DirentSize)

	for i, slot := range table.slots {
		var record []byte
		switch slot.State {
		case SlotEmpty:
			record = empty
		case SlotDeleted:
			record = deleted
		default:
			encoded, err := slot.Entry.Encode()
			if err != nil {
				return err
			}
			record = encoded
		}

		_, err := writer.Write(record)
		if err != nil {
			return fatimg.ErrInvalidArgument.Wrap(
				fmt.Errorf("failed to write directory slot %d: %w", i, err))
		}
		if slot.State == SlotEmpty {
			break
		}
	}
	return nil
}
