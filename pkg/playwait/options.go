package playwait

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultSeekEndOffset is how far before the media end SeekToEnd lands.
const DefaultSeekEndOffset = 100 * time.Millisecond

// Options configures a Helpers instance.
type Options struct {
	// Logger receives debug output. The zero value discards everything.
	Logger zerolog.Logger

	// SeekEndOffset is subtracted from the media duration by SeekToEnd.
	// Zero means DefaultSeekEndOffset.
	SeekEndOffset time.Duration
}

// DefaultOptions returns the options used for unset fields.
func DefaultOptions() Options {
	return Options{
		Logger:        zerolog.Nop(),
		SeekEndOffset: DefaultSeekEndOffset,
	}
}

// merge fills zero-valued fields of o from DefaultOptions.
func (o Options) merge() Options {
	d := DefaultOptions()
	if o.SeekEndOffset <= 0 {
		o.SeekEndOffset = d.SeekEndOffset
	}
	return o
}
