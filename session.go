package zag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meigma/zag/internal/notify"
)

// EmptyArchiveMessage is the alert shown when a download is requested with
// nothing staged.
const EmptyArchiveMessage = "No files to download!"

// Alert is a user-visible notification change.
type Alert struct {
	Message string
	Visible bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// SessionWithPipeline sets the export pipeline.
func SessionWithPipeline(p *Pipeline) SessionOption {
	return func(s *Session) {
		s.pipeline = p
	}
}

// SessionWithIngester sets the ingester used by Add.
func SessionWithIngester(in *Ingester) SessionOption {
	return func(s *Session) {
		s.ingester = in
	}
}

// SessionWithConfig sets the initial export configuration.
func SessionWithConfig(cfg ExportConfig) SessionOption {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// SessionWithRenderer registers fn to redraw the view whenever the staged
// entries change.
func SessionWithRenderer(fn func(EntrySet)) SessionOption {
	return func(s *Session) {
		s.renderers = append(s.renderers, fn)
	}
}

// SessionWithAlerts registers fn to receive alert changes.
func SessionWithAlerts(fn func(Alert)) SessionOption {
	return func(s *Session) {
		s.alertSink = fn
	}
}

// SessionWithAlertTimeout sets how long an alert stays visible (default 5s).
func SessionWithAlertTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.alertTimeout = d
	}
}

// SessionWithLogger sets the logger.
func SessionWithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session is the controller behind an interactive front end. It owns the
// Store, the export configuration and the alert slot, and allows at most
// one download to encode at a time.
type Session struct {
	store        *Store
	ingester     *Ingester
	pipeline     *Pipeline
	notifier     *notify.Notifier
	logger       *slog.Logger
	renderers    []func(EntrySet)
	alertSink    func(Alert)
	alertTimeout time.Duration

	mu      sync.Mutex
	cfg     ExportConfig
	active  *Task
	settled chan struct{} // closed once active has resolved and been alerted
}

// NewSession creates a Session with an empty Store.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		store: NewStore(),
		cfg:   DefaultExportConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ingester == nil {
		s.ingester = NewIngester(IngestWithLogger(s.logger))
	}
	if s.pipeline == nil {
		s.pipeline = NewPipeline(ExportWithLogger(s.logger))
	}
	s.notifier = notify.New(
		notify.WithTimeout(s.alertTimeout),
		notify.WithSink(func(ev notify.Event) {
			if s.alertSink != nil {
				s.alertSink(Alert{Message: ev.Message, Visible: ev.State == notify.Visible})
			}
		}),
	)
	for _, fn := range s.renderers {
		s.store.Subscribe(fn)
	}
	return s
}

// Store returns the state holder.
func (s *Session) Store() *Store {
	return s.store
}

// Entries returns the staged entries.
func (s *Session) Entries() EntrySet {
	return s.store.Snapshot()
}

// Add ingests handles and merges them into the staged entries, replacing
// entries with the same names. On failure nothing is merged.
func (s *Session) Add(ctx context.Context, handles ...FileHandle) error {
	entries, err := s.ingester.Ingest(ctx, handles...)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		s.store.Merge(entries...)
	}
	return nil
}

// Remove unstages name. Unknown names are ignored.
func (s *Session) Remove(name string) {
	s.store.Remove(name)
}

// Config returns the current export configuration.
func (s *Session) Config() ExportConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetFilename sets the output filename.
func (s *Session) SetFilename(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Filename = name
}

// SetCompressionLevel sets the compression level, 0 to 9.
func (s *Session) SetCompressionLevel(level int) error {
	if err := ValidateLevel(level); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.CompressionLevel = level
	return nil
}

// ExportEnabled reports whether Download may be called, that is, no
// download started by this session is still encoding.
func (s *Session) ExportEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportEnabledLocked()
}

func (s *Session) exportEnabledLocked() bool {
	return s.active == nil || s.active.State() != TaskEncoding
}

// ControlLabel returns the text for the download control.
func (s *Session) ControlLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exportEnabledLocked() {
		return "Compress and Download"
	}
	ms := float64(s.active.Elapsed()) / float64(time.Millisecond)
	return fmt.Sprintf("Compressing: %.2fms...", ms)
}

// Download exports the staged entries with the current configuration.
//
// While a previous download is encoding, Download returns
// ErrExportInProgress without reaching the pipeline. An empty set returns
// ErrEmptyArchive. Both of these, and any failure the returned Task
// resolves with, are also shown as an alert.
func (s *Session) Download(ctx context.Context) (*Task, error) {
	s.mu.Lock()
	if !s.exportEnabledLocked() {
		s.mu.Unlock()
		return nil, ErrExportInProgress
	}
	task, err := s.pipeline.Export(ctx, s.store.Snapshot(), s.cfg)
	if err != nil {
		s.mu.Unlock()
		s.alertFor(err)
		return nil, err
	}
	settled := make(chan struct{})
	s.active = task
	s.settled = settled
	s.mu.Unlock()

	go func() {
		defer close(settled)
		<-task.Done()
		if err := task.Err(); err != nil {
			s.alertFor(err)
		}
	}()
	return task, nil
}

// Wait blocks until the most recent download has resolved and any failure
// has been shown as an alert, then returns its outcome. With no download
// started it returns a zero Result and nil. Giving up on ctx does not stop
// the export.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	s.mu.Lock()
	task, settled := s.active, s.settled
	s.mu.Unlock()
	if task == nil {
		return Result{}, nil
	}
	select {
	case <-settled:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	return task.Wait(ctx)
}

// CurrentAlert returns the visible alert message, if any.
func (s *Session) CurrentAlert() (string, bool) {
	return s.notifier.Current()
}

// DismissAlert hides the visible alert.
func (s *Session) DismissAlert() {
	s.notifier.Dismiss()
}

func (s *Session) alertFor(err error) {
	if errors.Is(err, ErrEmptyArchive) {
		s.notifier.Show(EmptyArchiveMessage)
		return
	}
	s.log().Debug("download failed", "error", err)
	s.notifier.Show(err.Error())
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Session) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}
