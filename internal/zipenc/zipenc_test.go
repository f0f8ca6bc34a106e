package zipenc

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readArchive(t *testing.T, data []byte) map[string]*zip.File {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	return files
}

func readContent(t *testing.T, f *zip.File) []byte {
	t.Helper()

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	return content
}

func TestEncodeStore(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Path: "a.txt", Data: []byte("hello")},
		{Path: "bin.dat", Data: []byte{0x00, 0xff, 0x0d, 0x0a, 0x00}},
	}

	data, err := New().Encode(context.Background(), items, OptionsForLevel(0))
	require.NoError(t, err)

	files := readArchive(t, data)
	require.Len(t, files, 2)
	for _, it := range items {
		f, ok := files[it.Path]
		require.True(t, ok, "missing %q", it.Path)
		assert.Equal(t, zip.Store, f.Method)
		assert.Equal(t, it.Data, readContent(t, f))
	}
}

func TestEncodeDeflate(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("compressible text "), 1000)
	items := []Item{{Path: "big.txt", Data: payload}}

	for level := 1; level <= MaxLevel; level++ {
		data, err := New().Encode(context.Background(), items, OptionsForLevel(level))
		require.NoError(t, err)

		files := readArchive(t, data)
		f := files["big.txt"]
		require.NotNil(t, f)
		assert.Equal(t, zip.Deflate, f.Method, "level %d", level)
		assert.Less(t, f.CompressedSize64, f.UncompressedSize64, "level %d", level)
		assert.Equal(t, payload, readContent(t, f), "level %d", level)
	}
}

func TestEncodeUnixPlatform(t *testing.T) {
	t.Parallel()

	data, err := New().Encode(context.Background(), []Item{{Path: "a.txt", Data: []byte("x")}}, OptionsForLevel(5))
	require.NoError(t, err)

	f := readArchive(t, data)["a.txt"]
	require.NotNil(t, f)
	assert.Equal(t, uint16(PlatformUnix), f.CreatorVersion>>8)
	assert.Equal(t, "-rw-r--r--", f.Mode().String())
}

func TestEncodeItemStoreOverride(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Path: "photo.png", Data: []byte("already compressed"), Store: true},
		{Path: "notes.txt", Data: []byte("plain notes")},
	}
	data, err := New().Encode(context.Background(), items, OptionsForLevel(9))
	require.NoError(t, err)

	files := readArchive(t, data)
	assert.Equal(t, zip.Store, files["photo.png"].Method)
	assert.Equal(t, zip.Deflate, files["notes.txt"].Method)
}

func TestEncodeModifiedTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2023, 5, 6, 7, 8, 10, 0, time.UTC)
	opts := OptionsForLevel(0)
	opts.Modified = ts

	data, err := New().Encode(context.Background(), []Item{{Path: "a", Data: nil}}, opts)
	require.NoError(t, err)

	f := readArchive(t, data)["a"]
	require.NotNil(t, f)
	assert.True(t, f.Modified.Equal(ts), "got %v", f.Modified)
	assert.Empty(t, readContent(t, f))
}

func TestEncodeOnItem(t *testing.T) {
	t.Parallel()

	var seen []string
	opts := OptionsForLevel(1)
	opts.OnItem = func(path string, written, total int) {
		assert.Equal(t, 3, total)
		assert.Equal(t, len(seen)+1, written)
		seen = append(seen, path)
	}
	items := []Item{{Path: "a"}, {Path: "b"}, {Path: "c"}}
	_, err := New().Encode(context.Background(), items, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestEncodeCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Encode(ctx, []Item{{Path: "a", Data: []byte("x")}}, OptionsForLevel(0))
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"store", Options{Method: MethodStore}, false},
		{"deflate", Options{Method: MethodDeflate, Level: 9}, false},
		{"deflate level zero", Options{Method: MethodDeflate, Level: 0}, true},
		{"level too high", Options{Method: MethodDeflate, Level: 10}, true},
		{"negative level", Options{Method: MethodStore, Level: -1}, true},
		{"unknown method", Options{Method: 93, Level: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.opts.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidOptions)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOptionsForLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MethodStore, OptionsForLevel(0).Method)
	opts := OptionsForLevel(5)
	assert.Equal(t, MethodDeflate, opts.Method)
	assert.Equal(t, 5, opts.Level)
	assert.Equal(t, PlatformUnix, opts.Platform)
}
