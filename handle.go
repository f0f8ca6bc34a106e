package zag

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// FileHandle is a file offered for ingestion.
type FileHandle interface {
	// Name is used verbatim as the entry name.
	Name() string

	// Size is the declared byte length, or -1 when unknown.
	Size() int64

	// MediaType is a best-effort content type. Empty means unknown.
	MediaType() string

	// Open returns the file content.
	Open() (io.ReadCloser, error)
}

type osFile struct {
	path      string
	name      string
	size      int64
	mediaType string
}

// OSFile returns a handle for the regular file at path, named by its base name.
// Size and media type are captured now; content is read on Open.
func OSFile(path string) (FileHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	return &osFile{
		path:      path,
		name:      filepath.Base(path),
		size:      info.Size(),
		mediaType: mediaTypeByExtension(path),
	}, nil
}

func (f *osFile) Name() string      { return f.name }
func (f *osFile) Size() int64       { return f.size }
func (f *osFile) MediaType() string { return f.mediaType }

func (f *osFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

type bytesFile struct {
	name      string
	mediaType string
	data      []byte
}

// BytesFile returns a handle over an in-memory payload.
func BytesFile(name, mediaType string, data []byte) FileHandle {
	return &bytesFile{name: name, mediaType: mediaType, data: data}
}

func (f *bytesFile) Name() string      { return f.name }
func (f *bytesFile) Size() int64       { return int64(len(f.data)) }
func (f *bytesFile) MediaType() string { return f.mediaType }

func (f *bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// fallbackMediaTypes covers extensions the builtin mime table lacks on
// systems without a mime.types file.
var fallbackMediaTypes = map[string]string{
	".txt": "text/plain",
	".zip": "application/zip",
	".md":  "text/markdown",
	".csv": "text/csv",
}

// mediaTypeByExtension returns the bare media type registered for the
// extension of name, without parameters.
func mediaTypeByExtension(name string) string {
	ext := filepath.Ext(name)
	if mt := bareMediaType(mime.TypeByExtension(ext)); mt != "" {
		return mt
	}
	return fallbackMediaTypes[strings.ToLower(ext)]
}

func bareMediaType(v string) string {
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return mt
}
