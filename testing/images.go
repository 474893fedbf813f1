package testing

import (
	"io"
	"testing"

	"github.com/dargueta/fatimg/fat12"
	"github.com/dargueta/fatimg/layout"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewImageStream returns a stream over `image`. Writes to the stream modify
// `image` in place, so tests can inspect the raw bytes afterwards.
func NewImageStream(image []byte) io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(image)
}

// NewFormattedImage creates a freshly formatted in-memory image with the given
// layout and returns its bytes along with a stream over them.
func NewFormattedImage(t *testing.T, l layout.Layout) ([]byte, io.ReadWriteSeeker) {
	image := make([]byte, l.ImageSize)
	stream := NewImageStream(image)
	require.NoError(t, fat12.Format(stream, l), "failed to format %q image", l.Slug)
	return image, stream
}

// OpenFormattedImage formats a new in-memory image and opens it.
func OpenFormattedImage(
	t *testing.T, l layout.Layout, options ...fat12.Option,
) ([]byte, *fat12.Volume) {
	image, stream := NewFormattedImage(t, l)
	volume, err := fat12.Open(stream, l, options...)
	require.NoError(t, err, "failed to open freshly formatted image")
	return image, volume
}
