package zag

import (
	"github.com/meigma/zag/internal/write"
	"github.com/meigma/zag/internal/zipenc"
)

// --- Re-exports from internal packages ---

// EncodeItem is one named payload handed to an Encoder.
type EncodeItem = zipenc.Item

// EncodeOptions configures an Encoder run.
type EncodeOptions = zipenc.Options

// Method identifies how an entry is stored in the archive.
type Method = zipenc.Method

// Platform is the host system recorded in archive headers.
type Platform = zipenc.Platform

// SkipCompressionFunc returns true when an entry should be stored uncompressed.
type SkipCompressionFunc = write.SkipCompressionFunc

// Method constants.
const (
	MethodStore   = zipenc.MethodStore
	MethodDeflate = zipenc.MethodDeflate
)

// PlatformUnix is the only host system zag writes.
const PlatformUnix = zipenc.PlatformUnix

// DefaultSkipCompression returns a SkipCompressionFunc that skips small
// entries and known already-compressed extensions.
var DefaultSkipCompression = write.DefaultSkipCompression

// EncodeOptionsForLevel returns STORE for level 0 and DEFLATE at level otherwise.
var EncodeOptionsForLevel = zipenc.OptionsForLevel
