package zag

// ProgressEvent represents a progress update during ingestion or export.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the entry currently being processed, if applicable.
	Path string

	// BytesDone is the number of bytes completed in the current operation.
	BytesDone int64

	// BytesTotal is the total bytes for the current operation.
	// Zero indicates the total is unknown.
	BytesTotal int64

	// FilesDone is the number of entries completed.
	FilesDone int

	// FilesTotal is the total number of entries.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

const (
	// StageIngesting indicates file contents are being read into entries.
	StageIngesting ProgressStage = iota

	// StageEncoding indicates entries are being written into the archive.
	StageEncoding

	// StageSaving indicates the finished archive is being saved.
	StageSaving
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageIngesting:
		return "ingesting"
	case StageEncoding:
		return "encoding"
	case StageSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)

func (fn ProgressFunc) report(ev ProgressEvent) {
	if fn != nil {
		fn(ev)
	}
}
