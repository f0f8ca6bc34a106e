// Package zipenc encodes named payloads into a zip container.
package zipenc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// Method identifies how an item is stored in the archive.
type Method uint16

const (
	MethodStore   Method = Method(zip.Store)
	MethodDeflate Method = Method(zip.Deflate)
)

func (m Method) String() string {
	switch m {
	case MethodStore:
		return "STORE"
	case MethodDeflate:
		return "DEFLATE"
	default:
		return "unknown"
	}
}

// Platform is the host system recorded in each file header.
type Platform uint8

// Host system values from the zip application note.
const (
	PlatformDOS  Platform = 0
	PlatformUnix Platform = 3
)

func (p Platform) String() string {
	switch p {
	case PlatformDOS:
		return "DOS"
	case PlatformUnix:
		return "UNIX"
	default:
		return "unknown"
	}
}

// Level bounds.
const (
	MinLevel = 0
	MaxLevel = 9
)

// ErrInvalidOptions is returned when Options do not describe a valid encoding.
var ErrInvalidOptions = errors.New("zipenc: invalid options")

// Item is one file to write into the archive.
type Item struct {
	// Path is written verbatim as the in-archive name.
	Path string

	// Data is the file content.
	Data []byte

	// Store forces MethodStore for this item regardless of Options.Method.
	Store bool
}

// Options configures an encoding run.
type Options struct {
	Method   Method
	Level    int
	Platform Platform

	// Modified is stamped on every header. Zero means time.Now().
	Modified time.Time

	// Mode is recorded in the external attributes for Unix archives.
	// Zero means 0o644.
	Mode fs.FileMode

	// OnItem, if set, is called after each item has been written.
	OnItem func(path string, written, total int)
}

// OptionsForLevel returns STORE for level 0 and DEFLATE at level otherwise.
func OptionsForLevel(level int) Options {
	if level == 0 {
		return Options{Method: MethodStore, Level: 0, Platform: PlatformUnix}
	}
	return Options{Method: MethodDeflate, Level: level, Platform: PlatformUnix}
}

// Validate reports whether o describes a supported encoding.
func (o Options) Validate() error {
	if o.Level < MinLevel || o.Level > MaxLevel {
		return fmt.Errorf("%w: level %d out of range %d..%d", ErrInvalidOptions, o.Level, MinLevel, MaxLevel)
	}
	switch o.Method {
	case MethodStore:
	case MethodDeflate:
		if o.Level == 0 {
			return fmt.Errorf("%w: DEFLATE requires level 1..9", ErrInvalidOptions)
		}
	default:
		return fmt.Errorf("%w: method %d", ErrInvalidOptions, o.Method)
	}
	return nil
}

// Encoder produces zip archives in memory.
type Encoder struct{}

// New returns an Encoder.
func New() *Encoder {
	return &Encoder{}
}

// Encode writes items, in the order given, to a new zip archive and returns
// its bytes. Payloads are copied verbatim into (or deflated into) the archive.
//
// The context is checked between items.
func (e *Encoder) Encode(ctx context.Context, items []Item, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Write(ctx, &buf, items, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the archive for items to w.
func Write(ctx context.Context, w io.Writer, items []Item, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	if opts.Method == MethodDeflate {
		level := opts.Level
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}

	modified := opts.Modified
	if modified.IsZero() {
		modified = time.Now()
	}
	mode := opts.Mode
	if mode == 0 {
		mode = 0o644
	}

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}
		if err := writeItem(zw, it, opts, modified, mode); err != nil {
			zw.Close()
			return fmt.Errorf("write %s: %w", it.Path, err)
		}
		if opts.OnItem != nil {
			opts.OnItem(it.Path, i+1, len(items))
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func writeItem(zw *zip.Writer, it Item, opts Options, modified time.Time, mode fs.FileMode) error {
	method := opts.Method
	if it.Store {
		method = MethodStore
	}

	hdr := &zip.FileHeader{
		Name:     it.Path,
		Method:   uint16(method),
		Modified: modified,
	}
	if opts.Platform == PlatformUnix {
		// SetMode records the Unix creator in the upper byte of CreatorVersion.
		hdr.SetMode(mode)
	}

	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = fw.Write(it.Data)
	return err
}
