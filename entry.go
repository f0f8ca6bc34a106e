package zag

import (
	digest "github.com/opencontainers/go-digest"
)

// Entry is one file staged for the archive.
//
// Entries are values; Payload must not be modified after construction.
type Entry struct {
	// Name is the unique key within an EntrySet and the in-archive path.
	Name string

	// Payload is the file content.
	Payload []byte

	// Size is len(Payload), cached for display.
	Size int64

	// MediaType is a best-effort content type such as "image/png".
	// It is used for display only and never checked against Payload.
	MediaType string

	// Digest is the sha256 digest of Payload.
	Digest digest.Digest
}

// NewEntry builds an Entry. The payload is not copied; callers hand over
// ownership of data.
func NewEntry(name string, data []byte, mediaType string) Entry {
	return Entry{
		Name:      name,
		Payload:   data,
		Size:      int64(len(data)),
		MediaType: mediaType,
		Digest:    digest.FromBytes(data),
	}
}
