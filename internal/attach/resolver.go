// Package attach resolves requested attachment paths into size-budgeted,
// ready-to-send attachment handles.
package attach

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tclausen/mailsend/internal/email"
)

const mb = 1024 * 1024

// DefaultMaxTotalBytes is the default cumulative attachment size budget (20 MiB).
const DefaultMaxTotalBytes int64 = 20 * mb

// lockedExtensions lists office document formats whose owning application may
// hold an exclusive lock on the file. These are copied to a temporary
// directory before attaching so the send does not fail while the document is
// open in an editor.
var lockedExtensions = map[string]bool{
	".xls":  true,
	".xlsx": true,
	".xlsm": true,
	".xlsb": true,
	".doc":  true,
	".docx": true,
	".ppt":  true,
	".pptx": true,
}

// TempDirProvider supplies a fresh temporary directory. The resolver calls
// it at most once per Resolve invocation; all copies made during that
// invocation share the returned directory.
type TempDirProvider interface {
	TempDir() (string, error)
}

// Warning records a per-file problem that excluded one attachment without
// aborting the batch.
type Warning struct {
	Path   string
	Reason string
	Err    error
}

// Result is the outcome of resolving a batch of attachment requests.
// If OverflowNotice is non-empty, Files holds only the attachments accepted
// before the size budget was crossed.
type Result struct {
	Files          []email.Attachment
	OverflowNotice string
	Warnings       []Warning

	// TempDir is the temporary directory created for locked-format copies,
	// or empty if none was needed. The caller owns its removal.
	TempDir string
}

// Resolver turns requested file paths into attachable file handles.
type Resolver struct {
	tempDirs TempDirProvider
}

// NewResolver creates a Resolver using the given temporary-directory
// provider. A nil provider falls back to the process temp directory.
func NewResolver(tempDirs TempDirProvider) *Resolver {
	if tempDirs == nil {
		tempDirs = ProcessTempDir{}
	}
	return &Resolver{tempDirs: tempDirs}
}

// candidate is a path that passed the existence and type checks during the
// first pass and is waiting to be opened.
type candidate struct {
	displayName string
	openPath    string
	size        int64
}

// Resolve deduplicates paths, validates each entry, copies locked office
// formats aside, and enforces maxTotalBytes as a cumulative budget.
//
// The budget check is incremental: once the running total of file sizes
// reaches or exceeds the budget, the current file is dropped, no further
// paths are examined, and the files accepted so far are returned together
// with an overflow notice. Per-file failures (missing file, directory, copy
// or open error) exclude only the affected file.
func (r *Resolver) Resolve(paths []string, maxTotalBytes int64) Result {
	var res Result

	unique := dedupe(paths)

	var (
		accepted []candidate
		total    int64
		tempDir  string
	)

	for _, path := range unique {
		info, err := os.Stat(path)
		if err != nil {
			res.warn(path, "file not found", err)
			continue
		}
		if info.IsDir() {
			res.warn(path, "path is a directory", nil)
			continue
		}

		total += info.Size()

		openPath := path
		if lockedExtensions[strings.ToLower(filepath.Ext(path))] {
			if tempDir == "" {
				tempDir, err = r.tempDirs.TempDir()
				if err != nil {
					res.warn(path, "creating temp directory", err)
					continue
				}
				res.TempDir = tempDir
			}
			openPath = filepath.Join(tempDir, filepath.Base(path))
			if err := copyFile(path, openPath); err != nil {
				res.warn(path, "copying to temp directory", err)
				continue
			}
		}

		if total >= maxTotalBytes {
			res.OverflowNotice = fmt.Sprintf(
				"Attachments were omitted: the requested files total %.2f MB, exceeding the %d MB limit.",
				float64(total)/float64(mb), maxTotalBytes/mb,
			)
			slog.Warn("attachment size budget exceeded",
				"limit_bytes", maxTotalBytes,
				"total_bytes", total,
				"accepted", len(accepted),
			)
			break
		}

		accepted = append(accepted, candidate{
			displayName: filepath.Base(path),
			openPath:    openPath,
			size:        info.Size(),
		})
	}

	for _, c := range accepted {
		f, err := os.Open(c.openPath)
		if err != nil {
			res.warn(c.openPath, "opening for read", err)
			continue
		}
		res.Files = append(res.Files, email.Attachment{
			Name:        c.displayName,
			Path:        c.openPath,
			ContentType: contentTypeFor(c.displayName),
			Size:        c.size,
			Content:     f,
		})
	}

	return res
}

// dedupe removes exact string duplicates and returns the remaining paths in
// sorted order. Case or whitespace variants are distinct paths and are kept.
func dedupe(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	unique := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			unique = append(unique, p)
		}
	}
	return unique
}

func (res *Result) warn(path, reason string, err error) {
	res.Warnings = append(res.Warnings, Warning{Path: path, Reason: reason, Err: err})
	slog.Warn("skipping attachment", "path", path, "reason", reason, "error", err)
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
