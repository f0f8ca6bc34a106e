// Command zag packs files into a single zip archive.
//
//	zag [flags] FILE...
//	zag -i
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/meigma/zag"
	"github.com/meigma/zag/listing"
)

type config struct {
	filename       string
	dir            string
	level          int
	remove         []string
	listOnly       bool
	format         string
	workers        int
	skipCompressed bool
	verbose        bool
	interactive    bool
	files          []string
}

func main() {
	cfg := parseFlags(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags(args []string) config {
	var cfg config
	fs := flag.NewFlagSet("zag", flag.ExitOnError)
	fs.StringVar(&cfg.filename, "o", zag.DefaultFilename, "output filename (\"-\" writes to stdout)")
	fs.StringVar(&cfg.dir, "dir", ".", "output directory")
	fs.IntVar(&cfg.level, "level", zag.DefaultCompressionLevel, "compression level: 0 stores, 1-9 deflate")
	fs.Func("rm", "unstage an entry by name (repeatable)", func(v string) error {
		cfg.remove = append(cfg.remove, v)
		return nil
	})
	fs.BoolVar(&cfg.listOnly, "list", false, "list staged entries and exit")
	fs.StringVar(&cfg.format, "format", string(listing.FormatText), "listing format: text, yaml, json")
	fs.IntVar(&cfg.workers, "workers", 0, "files read concurrently (0 = GOMAXPROCS)")
	fs.BoolVar(&cfg.skipCompressed, "skip-compressed", false, "store already-compressed files without deflate")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	fs.BoolVar(&cfg.interactive, "i", false, "interactive mode")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: zag [flags] FILE...")
		fmt.Fprintln(fs.Output(), "       zag -i")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	cfg.files = fs.Args()
	return cfg
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newSession(cfg config, stdout io.Writer, logger *slog.Logger, extra ...zag.SessionOption) (*zag.Session, error) {
	if err := zag.ValidateLevel(cfg.level); err != nil {
		return nil, err
	}

	var saver zag.Saver = zag.FileSaver{Dir: cfg.dir}
	if cfg.filename == "-" {
		saver = zag.WriterSaver{W: stdout}
	}

	pipelineOpts := []zag.PipelineOption{
		zag.ExportWithSaver(saver),
		zag.ExportWithLogger(logger),
	}
	if cfg.skipCompressed {
		pipelineOpts = append(pipelineOpts, zag.ExportWithSkipCompression(zag.DefaultSkipCompression(0)))
	}
	if cfg.verbose {
		pipelineOpts = append(pipelineOpts, zag.ExportWithProgress(func(ev zag.ProgressEvent) {
			logger.Debug("progress", "stage", ev.Stage.String(), "path", ev.Path,
				"files", fmt.Sprintf("%d/%d", ev.FilesDone, ev.FilesTotal))
		}))
	}

	opts := []zag.SessionOption{
		zag.SessionWithPipeline(zag.NewPipeline(pipelineOpts...)),
		zag.SessionWithIngester(zag.NewIngester(
			zag.IngestWithWorkers(cfg.workers),
			zag.IngestWithLogger(logger),
		)),
		zag.SessionWithConfig(zag.ExportConfig{Filename: cfg.filename, CompressionLevel: cfg.level}),
		zag.SessionWithLogger(logger),
	}
	return zag.NewSession(append(opts, extra...)...), nil
}

func run(ctx context.Context, cfg config, stdin io.Reader, stdout, stderr io.Writer) error {
	if cfg.interactive {
		// Background exports write alongside the prompt loop.
		stdout, stderr = &syncWriter{w: stdout}, &syncWriter{w: stderr}
		return interactive(ctx, cfg, stdin, stdout, stderr, newLogger(stderr, cfg.verbose))
	}
	logger := newLogger(stderr, cfg.verbose)

	s, err := newSession(cfg, stdout, logger)
	if err != nil {
		return err
	}
	if err := addPaths(ctx, s, cfg.files); err != nil {
		return err
	}
	for _, name := range cfg.remove {
		s.Remove(name)
	}

	if cfg.listOnly {
		return listing.Build(s.Entries()).Write(stdout, listing.Format(cfg.format))
	}
	if err := listing.Build(s.Entries()).Write(stderr, listing.Format(cfg.format)); err != nil {
		return err
	}

	task, err := s.Download(ctx)
	if err != nil {
		return err
	}
	res, err := task.Wait(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	printResult(stderr, res)
	return nil
}

func addPaths(ctx context.Context, s *zag.Session, paths []string) error {
	handles := make([]zag.FileHandle, 0, len(paths))
	for _, p := range paths {
		h, err := zag.OSFile(p)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}
	return s.Add(ctx, handles...)
}

func printResult(w io.Writer, res zag.Result) {
	fmt.Fprintf(w, "wrote %s: %d entries, %s, %s (%s level %d) in %s\n",
		res.Filename, res.Entries, listing.ReadableSize(res.Size), res.Digest,
		res.Method, res.Level, res.Elapsed.Round(time.Millisecond))
}

// syncWriter serializes writes to w.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

const interactiveHelp = `commands:
  add PATH...     stage files
  rm NAME...      unstage entries
  ls [FORMAT]     list entries (text, yaml, json)
  name FILENAME   set output filename
  level N         set compression level 0-9
  zip             compress and save in the background
  status          show download state and settings
  quit            wait for a running export, then exit`

func interactive(ctx context.Context, cfg config, stdin io.Reader, stdout, stderr io.Writer, logger *slog.Logger) error {
	s, err := newSession(cfg, stdout, logger,
		zag.SessionWithRenderer(func(set zag.EntrySet) {
			_ = listing.Render(stdout, set)
		}),
		zag.SessionWithAlerts(func(a zag.Alert) {
			if a.Visible {
				fmt.Fprintln(stderr, "Whoops!", a.Message)
			}
		}),
	)
	if err != nil {
		return err
	}
	if err := addPaths(ctx, s, cfg.files); err != nil {
		fmt.Fprintln(stderr, err)
	}

	var bg sync.WaitGroup
	fmt.Fprintln(stdout, interactiveHelp)
	sc := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !sc.Scan() {
			break
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		quit, err := dispatch(ctx, s, &bg, fields, stdout, stderr)
		if err != nil && !errors.Is(err, zag.ErrEmptyArchive) {
			fmt.Fprintln(stderr, err)
		}
		if quit {
			return drain(ctx, s, &bg, stderr)
		}
	}
	if err := drain(ctx, s, &bg, stderr); err != nil {
		return err
	}
	return sc.Err()
}

// drain waits for a running export to succeed or fail and for its outcome to
// be printed. Only ctx ends the wait early.
func drain(ctx context.Context, s *zag.Session, bg *sync.WaitGroup, stderr io.Writer) error {
	if !s.ExportEnabled() {
		fmt.Fprintln(stderr, "waiting for the running export to finish...")
	}
	if _, err := s.Wait(ctx); err != nil && ctx.Err() != nil {
		return err
	}
	bg.Wait()
	return nil
}

func dispatch(ctx context.Context, s *zag.Session, bg *sync.WaitGroup, fields []string, stdout, stderr io.Writer) (quit bool, err error) {
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "add":
		return false, addPaths(ctx, s, args)
	case "rm":
		for _, name := range args {
			s.Remove(name)
		}
		return false, nil
	case "ls":
		format := listing.FormatText
		if len(args) > 0 {
			format = listing.Format(args[0])
		}
		return false, listing.Build(s.Entries()).Write(stdout, format)
	case "name":
		if len(args) != 1 {
			return false, errors.New("usage: name FILENAME")
		}
		s.SetFilename(args[0])
		return false, nil
	case "level":
		if len(args) != 1 {
			return false, errors.New("usage: level N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("%w: %s", zag.ErrInvalidLevel, args[0])
		}
		return false, s.SetCompressionLevel(n)
	case "zip":
		task, err := s.Download(ctx)
		if err != nil {
			return false, err
		}
		// Failures reach the user as alerts.
		bg.Go(func() {
			if res, err := task.Wait(context.Background()); err == nil {
				printResult(stderr, res)
			}
		})
		return false, nil
	case "status":
		c := s.Config()
		fmt.Fprintf(stdout, "%s | filename=%s level=%d\n", s.ControlLabel(), c.Filename, c.CompressionLevel)
		return false, nil
	case "help":
		fmt.Fprintln(stdout, interactiveHelp)
		return false, nil
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
}
