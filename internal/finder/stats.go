package finder

import (
	"time"
)

const (
	// DefaultCount is the number of files tracked when Options.Count is not set.
	DefaultCount = 20
	// MaxCount is the largest number of files a scan may track.
	MaxCount = 10000
	// DefaultCeiling caps the number of concurrently spawned walker tasks.
	DefaultCeiling = 30
	// DefaultBuffer is the capacity of the channel between walkers and the coordinator.
	DefaultBuffer = 1024
	// DefaultProgressInterval is the default interval for progress updates.
	DefaultProgressInterval = 500 * time.Millisecond
)

// bytesPerMB converts raw sizes into whole megabytes.
const bytesPerMB = 1024 * 1024

// FileRecord represents a single file path and its size.
type FileRecord struct {
	// Path is the file path as discovered by the walker.
	Path string `json:"path" yaml:"path"`
	// SizeMB is the size in whole megabytes, truncated.
	SizeMB uint64 `json:"size_mb" yaml:"size_mb"`
	// Bytes is the raw size in bytes.
	Bytes int64 `json:"bytes" yaml:"bytes"`
}

// NewFileRecord creates a record, deriving the megabyte size from bytes.
func NewFileRecord(path string, bytes int64) FileRecord {
	var mb uint64
	if bytes > 0 {
		mb = uint64(bytes) / bytesPerMB
	}

	return FileRecord{Path: path, SizeMB: mb, Bytes: bytes}
}

// RootError records a root that could not be read at all.
type RootError struct {
	Root  string `json:"root"  yaml:"root"`
	Error string `json:"error" yaml:"error"`
}

// Result holds the outcome of a scan.
type Result struct {
	// Roots are the directories that were walked.
	Roots []string `json:"roots" yaml:"roots"`
	// TopFiles contains the tracked files, largest first.
	TopFiles []FileRecord `json:"top_files" yaml:"top_files"`
	// FileCount is the number of regular files folded into the store.
	FileCount int64 `json:"file_count" yaml:"file_count"`
	// TotalBytes is the cumulative size of all counted files.
	TotalBytes int64 `json:"total_bytes" yaml:"total_bytes"`
	// EnumerationErrors counts directories that could not be listed.
	EnumerationErrors int64 `json:"enumeration_errors" yaml:"enumeration_errors"`
	// MetadataErrors counts discovered paths that could not be stat'ed.
	MetadataErrors int64 `json:"metadata_errors" yaml:"metadata_errors"`
	// RootErrors lists roots that failed entirely.
	RootErrors []RootError `json:"root_errors,omitempty" yaml:"root_errors,omitempty"`
	// PeakTasks is the highest number of concurrently spawned walker tasks.
	PeakTasks int64 `json:"peak_tasks" yaml:"peak_tasks"`
	// Incomplete is set when the drain loop stopped on inactivity while walkers were still running.
	Incomplete bool `json:"incomplete" yaml:"incomplete"`
	// Elapsed is the total time taken for the scan.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	// TopN is the capacity of the store.
	TopN int `json:"top_n" yaml:"top_n"`
}

// Options configures a scan.
type Options struct {
	// Path is the directory to scan. Empty means all mounted volumes.
	Path string
	// Count is the number of files to track.
	Count int
	// Ceiling caps concurrently spawned walker tasks across all roots.
	Ceiling int
	// Buffer is the capacity of the path channel.
	Buffer int
	// IdleTimeout, when positive, stops draining after this long without a new path.
	// Results may then be incomplete if a subtree produced no traffic within the window.
	IdleTimeout time.Duration
	// Policy selects the eviction rule of the store.
	Policy Policy
	// MinSize is the minimum file size in bytes for a file to enter the store.
	MinSize int64
	// Excludes contains regex patterns; matching files and directories are skipped.
	Excludes []string
	// Denylist contains mount points (or doublestar globs) skipped during volume enumeration.
	Denylist []string
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// FS is the filesystem to walk. Defaults to the OS filesystem.
	FS FileSystem
	// Volumes enumerates mount points when Path is empty.
	Volumes VolumeLister
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.Count <= 0 {
		o.Count = DefaultCount
	}

	if o.Ceiling <= 0 {
		o.Ceiling = DefaultCeiling
	}

	if o.Buffer <= 0 {
		o.Buffer = DefaultBuffer
	}

	if o.FS == nil {
		o.FS = OSFS{}
	}

	if o.Volumes == nil {
		o.Volumes = Partitions{}
	}

	if o.Denylist == nil {
		o.Denylist = DefaultDenylist
	}

	return o
}
