package zag

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	digest "github.com/opencontainers/go-digest"

	"github.com/meigma/zag/internal/write"
	"github.com/meigma/zag/internal/zipenc"
)

// Defaults for ExportConfig.
const (
	DefaultFilename         = "archive.zip"
	DefaultCompressionLevel = 7
)

// Compression level bounds. Level 0 stores entries uncompressed.
const (
	MinCompressionLevel = zipenc.MinLevel
	MaxCompressionLevel = zipenc.MaxLevel
)

// ExportConfig selects the output name and compression for an export.
type ExportConfig struct {
	Filename         string
	CompressionLevel int
}

// DefaultExportConfig returns "archive.zip" at level 7.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{Filename: DefaultFilename, CompressionLevel: DefaultCompressionLevel}
}

// Validate checks the compression level.
func (c ExportConfig) Validate() error {
	return ValidateLevel(c.CompressionLevel)
}

// ValidateLevel returns ErrInvalidLevel unless level is within 0..9.
func ValidateLevel(level int) error {
	if level < MinCompressionLevel || level > MaxCompressionLevel {
		return fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidLevel, level, MinCompressionLevel, MaxCompressionLevel)
	}
	return nil
}

// Encoder turns items into a zip archive.
type Encoder interface {
	Encode(ctx context.Context, items []EncodeItem, opts EncodeOptions) ([]byte, error)
}

// Result describes a saved archive.
type Result struct {
	Filename string
	Entries  int
	Size     int64
	Digest   digest.Digest
	Method   Method
	Level    int
	Elapsed  time.Duration
}

// PipelineState reports whether an export is encoding.
type PipelineState uint8

const (
	StateIdle PipelineState = iota
	StateEncoding
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// ExportWithEncoder replaces the zip encoder. A nil encoder is ignored.
func ExportWithEncoder(enc Encoder) PipelineOption {
	return func(p *Pipeline) {
		if enc != nil {
			p.encoder = enc
		}
	}
}

// ExportWithSaver sets where finished archives go. The default writes into
// the current directory. A nil saver is ignored.
func ExportWithSaver(s Saver) PipelineOption {
	return func(p *Pipeline) {
		if s != nil {
			p.saver = s
		}
	}
}

// ExportWithSkipCompression adds predicates that store an entry uncompressed.
// If any predicate returns true, that entry uses STORE whatever the level.
func ExportWithSkipCompression(fns ...SkipCompressionFunc) PipelineOption {
	return func(p *Pipeline) {
		p.skipCompression = append(p.skipCompression, fns...)
	}
}

// ExportWithLogger sets the logger for exports.
func ExportWithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// ExportWithProgress sets a callback for encoding and saving progress.
func ExportWithProgress(fn ProgressFunc) PipelineOption {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// ExportWithClock overrides time.Now for timestamps and elapsed times.
func ExportWithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// Pipeline snapshots an EntrySet into a zip archive and saves it.
//
// A Pipeline does not reject concurrent exports; callers that need one
// export at a time gate on State, as Session does.
type Pipeline struct {
	encoder         Encoder
	saver           Saver
	skipCompression []SkipCompressionFunc
	logger          *slog.Logger
	progress        ProgressFunc
	now             func() time.Time

	encoding atomic.Int64
}

// NewPipeline creates a Pipeline backed by the zip encoder.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		encoder: zipenc.New(),
		saver:   FileSaver{Dir: "."},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns StateEncoding while any export is running.
func (p *Pipeline) State() PipelineState {
	if p.encoding.Load() > 0 {
		return StateEncoding
	}
	return StateIdle
}

// Export starts encoding set and returns a handle to the running export.
//
// An empty set fails with ErrEmptyArchive and an out-of-range level with
// ErrInvalidLevel; in both cases the encoder is not invoked. Otherwise the
// archive holds every entry under its name, STORE at level 0 and DEFLATE at
// the given level otherwise, with Unix host attributes. Encoder and save
// failures resolve the task with a *GenerationError.
//
// The filename is reduced to its last path element, and an empty one
// becomes DefaultFilename. Result.Filename reports the reduced name.
//
// Once started an export runs to completion; cancelling ctx has no effect.
func (p *Pipeline) Export(ctx context.Context, set EntrySet, cfg ExportConfig) (*Task, error) {
	if set.Len() == 0 {
		return nil, ErrEmptyArchive
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Filename = archiveName(cfg.Filename)

	entries := set.Sorted()
	_, total := set.Summarize()
	items := make([]EncodeItem, len(entries))
	for i, e := range entries {
		items[i] = EncodeItem{
			Path:  e.Name,
			Data:  e.Payload,
			Store: cfg.CompressionLevel > 0 && write.ShouldSkip(e.Name, e.Size, p.skipCompression),
		}
	}

	opts := zipenc.OptionsForLevel(cfg.CompressionLevel)
	opts.Modified = p.now()
	var bytesDone int64
	opts.OnItem = func(path string, written, count int) {
		bytesDone += entries[written-1].Size
		p.progress.report(ProgressEvent{
			Stage:      StageEncoding,
			Path:       path,
			BytesDone:  bytesDone,
			BytesTotal: total,
			FilesDone:  written,
			FilesTotal: count,
		})
	}

	task := newTask(p.now)
	p.log().Info("exporting archive",
		"task", task.ID(),
		"filename", cfg.Filename,
		"entries", len(items),
		"bytes", total,
		"method", opts.Method.String(),
		"level", opts.Level)

	p.encoding.Add(1)
	go p.run(context.WithoutCancel(ctx), task, items, opts, cfg)
	return task, nil
}

// run encodes and saves, then resolves task. The pipeline leaves the
// encoding state before the task resolves.
func (p *Pipeline) run(ctx context.Context, task *Task, items []EncodeItem, opts EncodeOptions, cfg ExportConfig) {
	res, err := p.encodeAndSave(ctx, items, opts, cfg)
	p.encoding.Add(-1)
	logger := p.log().With("task", task.ID())
	if err != nil {
		logger.Error("archive generation failed", "filename", cfg.Filename, "error", err)
	} else {
		logger.Info("archive saved", "filename", res.Filename, "size", res.Size, "digest", res.Digest.String())
	}
	task.resolve(res, err)
}

func (p *Pipeline) encodeAndSave(ctx context.Context, items []EncodeItem, opts EncodeOptions, cfg ExportConfig) (Result, error) {
	data, err := p.encode(ctx, items, opts)
	if err != nil {
		return Result{}, generationFailed(err)
	}

	res := Result{
		Filename: cfg.Filename,
		Entries:  len(items),
		Size:     int64(len(data)),
		Digest:   digest.FromBytes(data),
		Method:   opts.Method,
		Level:    opts.Level,
	}

	p.progress.report(ProgressEvent{Stage: StageSaving, Path: cfg.Filename, BytesTotal: res.Size, FilesDone: len(items), FilesTotal: len(items)})
	if err := p.saver.Save(ctx, cfg.Filename, data); err != nil {
		return Result{}, saveFailed(cfg.Filename, err)
	}
	p.progress.report(ProgressEvent{Stage: StageSaving, Path: cfg.Filename, BytesDone: res.Size, BytesTotal: res.Size, FilesDone: len(items), FilesTotal: len(items)})
	return res, nil
}

// archiveName reduces name to the file name a Saver writes: the last path
// element, or DefaultFilename when nothing usable is left.
func archiveName(name string) string {
	name = filepath.Base(filepath.Clean(filepath.FromSlash(name)))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return DefaultFilename
	}
	return name
}

// encode calls the encoder, converting a panic into an error.
func (p *Pipeline) encode(ctx context.Context, items []EncodeItem, opts EncodeOptions) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder panic: %v", r)
		}
	}()
	return p.encoder.Encode(ctx, items, opts)
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Pipeline) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}
