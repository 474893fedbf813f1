package fat12

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dargueta/fatimg"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	deletedMarker = 0xE5
	// escapedE5 stands in for a real 0xE5 as the first character of a name.
	escapedE5 = 0x05
)

// ShortName is a packed 8.3 name: eight bytes of base name and three bytes of
// extension, both padded with spaces. The dot isn't stored.
type ShortName [11]byte

// NewShortName packs `base` and `ext` without changing their case. Parts that
// are too long are truncated.
func NewShortName(base, ext string) ShortName {
	var name ShortName
	for i := range name {
		name[i] = ' '
	}
	copy(name[:8], base)
	copy(name[8:], ext)

	if name[0] == deletedMarker {
		name[0] = escapedE5
	}
	return name
}

// ParseShortName packs a name of the form "BASE.EXT". The extension is
// whatever follows the last dot; a name without a dot has no extension.
func ParseShortName(s string) ShortName {
	dot := strings.LastIndexByte(s, '.')
	if dot < 0 {
		return NewShortName(s, "")
	}
	return NewShortName(s[:dot], s[dot+1:])
}

// Validate rejects names that can't be stored in a directory slot: the first
// byte can't be 0x00 or a raw 0xE5, which mark empty and deleted slots, and the
// base name can't be blank.
func (name ShortName) Validate() error {
	switch {
	case name[0] == 0x00:
		return fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("name %q starts with a NUL byte", name[:]))
	case name[0] == deletedMarker:
		return fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("name %q starts with an unescaped 0xE5", name[:]))
	case bytes.Equal(name[:8], []byte("        ")):
		return fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("name %q has a blank base name", name[:]))
	}
	return nil
}

// Base returns the base name without padding.
func (name ShortName) Base() string {
	base := name
	if base[0] == escapedE5 {
		base[0] = deletedMarker
	}
	return string(bytes.TrimRight(base[:8], " "))
}

// Extension returns the extension without padding.
func (name ShortName) Extension() string {
	return string(bytes.TrimRight(name[8:], " "))
}

// String renders the name as "BASE.EXT", or "BASE" if there's no extension.
func (name ShortName) String() string {
	ext := name.Extension()
	if ext == "" {
		return name.Base()
	}
	return name.Base() + "." + ext
}

// Display decodes the name from code page 437 for printing.
func (name ShortName) Display() string {
	decoded, err := charmap.CodePage437.NewDecoder().String(name.String())
	if err != nil {
		return name.String()
	}
	return decoded
}

// invalidNameChars can't appear in a short name.
const invalidNameChars = "\"*+,./:;<=>?[\\]| "

func sanitizeNamePart(part string) string {
	var b strings.Builder
	for i := 0; i < len(part); i++ {
		ch := part[i]
		if ch < 0x20 || ch == 0x7F || strings.IndexByte(invalidNameChars, ch) >= 0 {
			b.WriteByte('_')
		} else {
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// ShortNameFromPath derives a short name from the base name of a host path. The
// name is uppercased and encoded to code page 437. Characters that can't be
// encoded or aren't allowed in a short name become underscores.
func ShortNameFromPath(path string) (ShortName, error) {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return ShortName{}, fatimg.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("can't derive a file name from %q", path))
	}

	encoder := encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder())
	encoded, err := encoder.String(strings.ToUpper(base))
	if err != nil {
		return ShortName{}, fatimg.ErrInvalidArgument.Wrap(err)
	}

	stem, ext := encoded, ""
	if dot := strings.LastIndexByte(encoded, '.'); dot > 0 {
		stem, ext = encoded[:dot], encoded[dot+1:]
	}
	return NewShortName(sanitizeNamePart(stem), sanitizeNamePart(ext)), nil
}
