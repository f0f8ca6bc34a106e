package zag

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/zag/internal/sizing"
)

// IngestOption configures an Ingester.
type IngestOption func(*Ingester)

// IngestWithWorkers sets how many files are read concurrently.
// Values <= 0 use GOMAXPROCS.
func IngestWithWorkers(n int) IngestOption {
	return func(in *Ingester) {
		in.workers = n
	}
}

// IngestWithLogger sets the logger for ingestion.
func IngestWithLogger(logger *slog.Logger) IngestOption {
	return func(in *Ingester) {
		in.logger = logger
	}
}

// IngestWithProgress sets a callback for per-file progress.
func IngestWithProgress(fn ProgressFunc) IngestOption {
	return func(in *Ingester) {
		in.progress = fn
	}
}

// Ingester turns file handles into entries.
//
// Payloads are read eagerly, so entries stay valid after the originating
// files disappear.
type Ingester struct {
	workers  int
	logger   *slog.Logger
	progress ProgressFunc
}

// NewIngester creates an Ingester.
func NewIngester(opts ...IngestOption) *Ingester {
	in := &Ingester{}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest reads every handle and returns one entry per handle, in input order.
//
// No size, type or name validation is done; zero-byte files are accepted.
// If any file cannot be read, or yields a different number of bytes than it
// declared, Ingest returns an error and no entries.
func (in *Ingester) Ingest(ctx context.Context, handles ...FileHandle) ([]Entry, error) {
	entries := make([]Entry, len(handles))
	if len(handles) == 0 {
		return entries, nil
	}

	var total int64
	for _, h := range handles {
		if n := h.Size(); n > 0 {
			total += n
		}
	}

	workers := in.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var filesDone atomic.Int64
	var bytesDone atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, h := range handles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := readEntry(h)
			if err != nil {
				return err
			}
			entries[i] = e
			in.log().Debug("ingested file", "name", e.Name, "size", e.Size, "media_type", e.MediaType)
			in.progress.report(ProgressEvent{
				Stage:      StageIngesting,
				Path:       e.Name,
				BytesDone:  bytesDone.Add(e.Size),
				BytesTotal: total,
				FilesDone:  int(filesDone.Add(1)),
				FilesTotal: len(handles),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// readEntry snapshots one handle into an Entry.
func readEntry(h FileHandle) (Entry, error) {
	rc, err := h.Open()
	if err != nil {
		return Entry{}, fmt.Errorf("open %s: %w", h.Name(), err)
	}
	defer rc.Close()

	data, err := sizing.ReadExact(rc, h.Size(), ErrSizeMismatch)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", h.Name(), err)
	}

	mediaType := h.MediaType()
	if mediaType == "" {
		mediaType = bareMediaType(http.DetectContentType(data))
	}

	return NewEntry(h.Name(), data, mediaType), nil
}

// log returns the logger, falling back to a discard logger if nil.
func (in *Ingester) log() *slog.Logger {
	if in.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return in.logger
}
