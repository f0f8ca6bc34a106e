package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/zag"
)

func writeFiles(t *testing.T, dir string, files map[string]string) []string {
	t.Helper()
	paths := make([]string, 0, len(files))
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
		paths = append(paths, p)
	}
	return paths
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	cfg := parseFlags([]string{"-o", "x.zip", "-level", "0", "-rm", "a", "-rm", "b", "f1", "f2"})
	assert.Equal(t, "x.zip", cfg.filename)
	assert.Equal(t, 0, cfg.level)
	assert.Equal(t, []string{"a", "b"}, cfg.remove)
	assert.Equal(t, []string{"f1", "f2"}, cfg.files)

	cfg = parseFlags(nil)
	assert.Equal(t, zag.DefaultFilename, cfg.filename)
	assert.Equal(t, zag.DefaultCompressionLevel, cfg.level)
}

func TestRunWritesArchive(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	paths := writeFiles(t, src, map[string]string{
		"a.txt":  "alpha",
		"b.txt":  "bravo",
		"drop.c": "removed before export",
	})

	cfg := parseFlags(append([]string{"-o", "bundle.zip", "-dir", out, "-level", "0", "-rm", "drop.c"}, paths...))
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, strings.NewReader(""), &stdout, &stderr))

	data, err := os.ReadFile(filepath.Join(out, "bundle.zip"))
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Store, f.Method)
	}
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
	assert.Contains(t, stderr.String(), "2 entries - 10 B")
	assert.Contains(t, stderr.String(), "wrote bundle.zip")
}

func TestRunToStdout(t *testing.T) {
	t.Parallel()

	paths := writeFiles(t, t.TempDir(), map[string]string{"a.txt": "alpha"})
	cfg := parseFlags(append([]string{"-o", "-"}, paths...))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, strings.NewReader(""), &stdout, &stderr))

	zr, err := zip.NewReader(bytes.NewReader(stdout.Bytes()), int64(stdout.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, zip.Deflate, zr.File[0].Method)
}

func TestRunEmpty(t *testing.T) {
	t.Parallel()

	cfg := parseFlags([]string{"-dir", t.TempDir()})
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), cfg, strings.NewReader(""), &stdout, &stderr)
	require.ErrorIs(t, err, zag.ErrEmptyArchive)
}

func TestRunListOnly(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	paths := writeFiles(t, t.TempDir(), map[string]string{"a.txt": "alpha"})
	cfg := parseFlags(append([]string{"-list", "-format", "yaml", "-dir", out}, paths...))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "name: a.txt")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunInvalidLevel(t *testing.T) {
	t.Parallel()

	cfg := parseFlags([]string{"-level", "12"})
	err := run(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	require.ErrorIs(t, err, zag.ErrInvalidLevel)
}

func TestInteractive(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	paths := writeFiles(t, src, map[string]string{"a.txt": "alpha", "b.txt": "bravo"})

	script := strings.Join([]string{
		"zip",
		"add " + strings.Join(paths, " "),
		"rm b.txt",
		"name final.zip",
		"level 11",
		"level 3",
		"status",
		"bogus",
		"quit",
	}, "\n")

	cfg := parseFlags([]string{"-i", "-dir", out})
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, strings.NewReader(script), &stdout, &stderr))

	assert.Contains(t, stderr.String(), "Whoops! No files to download!")
	assert.Contains(t, stderr.String(), "invalid compression level")
	assert.Contains(t, stderr.String(), `unknown command "bogus"`)
	assert.Contains(t, stdout.String(), "2 entries - 10 B")
	assert.Contains(t, stdout.String(), "1 entries - 5 B")
	assert.Contains(t, stdout.String(), "filename=final.zip level=3")
}

func TestInteractiveQuitWaitsForExport(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	big := filepath.Join(src, "big.bin")
	payload := bytes.Repeat([]byte("zag interactive export "), 1<<20)
	require.NoError(t, os.WriteFile(big, payload, 0o600))
	small := writeFiles(t, src, map[string]string{"note.txt": "hello"})

	for _, ending := range []string{"quit\n", ""} {
		script := "add " + big + " " + small[0] + "\nname final.zip\nlevel 9\nzip\n" + ending

		cfg := parseFlags([]string{"-i", "-dir", out})
		var stdout, stderr bytes.Buffer
		require.NoError(t, run(context.Background(), cfg, strings.NewReader(script), &stdout, &stderr))
		assert.Contains(t, stderr.String(), "wrote final.zip")

		data, err := os.ReadFile(filepath.Join(out, "final.zip"))
		require.NoError(t, err)
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)
		require.Len(t, zr.File, 2)
		assert.Equal(t, "big.bin", zr.File[0].Name)
		assert.Equal(t, "note.txt", zr.File[1].Name)
		assert.Equal(t, uint64(len(payload)), zr.File[0].UncompressedSize64)

		require.NoError(t, os.Remove(filepath.Join(out, "final.zip")))
	}
}

func TestInteractiveQuitReportsFailedExport(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	paths := writeFiles(t, src, map[string]string{"a.txt": "alpha"})
	// The output "directory" is a regular file, so the save fails.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	script := "add " + paths[0] + "\nzip\nquit\n"
	cfg := parseFlags([]string{"-i", "-dir", blocker})
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, strings.NewReader(script), &stdout, &stderr))

	assert.Contains(t, stderr.String(), "Whoops! zag: save failed")
	assert.NotContains(t, stderr.String(), "wrote ")
}
