// Package recordstore implements the line-oriented, atomically-rewritten
// text file discipline shared by the bindings file (section 4.1) and the
// prkeys file (section 4.9): a fixed header banner, "key value" records
// one per line, '#' comments, blank lines ignored, and POSIX advisory
// locking across the whole process via flock rather than per-record
// byte-range locks.
package recordstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ncw/directio"
	"golang.org/x/sys/unix"
)

// Record is one parsed "key value" line.
type Record struct {
	Key   string
	Value string
}

// File wraps a path to a bindings-style text file.
type File struct {
	Path   string
	Header string
}

// New returns a File for the given path. header is written verbatim
// (including trailing newline) the first time the file is created.
func New(path, header string) *File {
	return &File{Path: path, Header: header}
}

// ParseLine parses one line of a record file. ok is false for blank lines
// and comment-only lines. extra carries any tokens found after the value,
// which callers should log as a warning but otherwise ignore, per
// spec.md section 4.1 ("extra tokens on a line are warned and ignored").
func ParseLine(line string) (key, value string, ok bool, extra string) {
	if i := strings.IndexAny(line, "#\r\n"); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", "", false, ""
	}
	key = fields[0]
	if len(fields) < 2 {
		return key, "", false, ""
	}
	value = fields[1]
	if len(fields) > 2 {
		extra = strings.Join(fields[2:], " ")
	}
	return key, value, true, extra
}

// EnsureExists creates the file with its header banner if it doesn't
// already exist. Reports whether the file is writable by the current
// process (inability to write is not itself an error here).
func (f *File) EnsureExists(perm os.FileMode) (writable bool, err error) {
	fh, err := os.OpenFile(f.Path, os.O_RDWR|os.O_CREATE, perm)
	if err != nil {
		fh, err = os.Open(f.Path)
		if err != nil {
			return false, fmt.Errorf("recordstore: cannot open %s: %w", f.Path, err)
		}
		fh.Close()
		return false, nil
	}
	info, statErr := fh.Stat()
	if statErr == nil && info.Size() == 0 && f.Header != "" {
		fh.WriteString(f.Header)
	}
	fh.Close()
	return true, nil
}

// ReadAll opens the file under a shared advisory lock and returns every
// well-formed record in file order.
func (f *File) ReadAll() ([]Record, error) {
	fh, err := os.Open(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recordstore: open %s for read: %w", f.Path, err)
	}
	defer fh.Close()

	if err := unix.Flock(int(fh.Fd()), unix.LOCK_SH); err != nil {
		return nil, fmt.Errorf("recordstore: lock %s: %w", f.Path, err)
	}
	defer unix.Flock(int(fh.Fd()), unix.LOCK_UN)

	var records []Record
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		key, value, ok, _ := ParseLine(scanner.Text())
		if !ok || value == "" {
			continue
		}
		records = append(records, Record{Key: key, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("recordstore: scan %s: %w", f.Path, err)
	}
	return records, nil
}

// Append opens the file under an exclusive advisory lock and writes one
// more "key value\n" record at the end.
func (f *File) Append(key, value string) error {
	fh, err := os.OpenFile(f.Path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("recordstore: open %s for append: %w", f.Path, err)
	}
	defer fh.Close()

	if err := unix.Flock(int(fh.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("recordstore: lock %s: %w", f.Path, err)
	}
	defer unix.Flock(int(fh.Fd()), unix.LOCK_UN)

	info, err := fh.Stat()
	if err == nil && info.Size() == 0 && f.Header != "" {
		if _, err := fh.WriteString(f.Header); err != nil {
			return err
		}
	}
	if _, err := fh.Seek(0, os.SEEK_END); err != nil {
		return err
	}
	_, err = fh.WriteString(fmt.Sprintf("%s %s\n", key, value))
	return err
}

// AtomicRewrite replaces the file's contents with records, holding the
// exclusive lock for the duration, writing a temp file in the same
// directory via O_DIRECT-aligned blocks, fsyncing it, renaming it over
// the original, and fsyncing the containing directory — never
// truncate-in-place (spec.md section 9's "Bindings file atomic rewrite"
// design note, which applies identically to the prkeys file).
func (f *File) AtomicRewrite(records []Record) error {
	lockFh, err := os.OpenFile(f.Path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("recordstore: open %s for rewrite lock: %w", f.Path, err)
	}
	defer lockFh.Close()

	if err := unix.Flock(int(lockFh.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("recordstore: lock %s: %w", f.Path, err)
	}
	defer unix.Flock(int(lockFh.Fd()), unix.LOCK_UN)

	var sb strings.Builder
	sb.WriteString(f.Header)
	for _, r := range records {
		sb.WriteString(r.Key)
		sb.WriteByte(' ')
		sb.WriteString(r.Value)
		sb.WriteByte('\n')
	}

	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".XXXXXX")
	if err != nil {
		return fmt.Errorf("recordstore: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	tmp.Close()

	if err := directWrite(tmpName, []byte(sb.String())); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("recordstore: direct write %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("recordstore: rename %s over %s: %w", tmpName, f.Path, err)
	}

	if dirFh, err := os.Open(dir); err == nil {
		dirFh.Sync()
		dirFh.Close()
	}
	return nil
}

// directWrite writes data to path using O_DIRECT block-aligned I/O,
// padding the final block with zeros and truncating back to the true
// length, then fsyncing.
func directWrite(path string, data []byte) error {
	fh, err := directio.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		// O_DIRECT is unsupported on some filesystems (tmpfs, overlayfs);
		// fall back to buffered I/O rather than fail the rewrite.
		return writeBuffered(path, data)
	}
	defer fh.Close()

	block := directio.AlignedBlock(directio.BlockSize)
	total := 0
	for total < len(data) || total == 0 {
		n := copy(block, data[total:])
		for i := n; i < len(block); i++ {
			block[i] = 0
		}
		if _, err := fh.Write(block); err != nil {
			return err
		}
		total += n
		if n < len(block) {
			break
		}
	}
	if err := fh.Truncate(int64(len(data))); err != nil {
		return err
	}
	return fh.Sync()
}

func writeBuffered(path string, data []byte) error {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer fh.Close()
	if _, err := fh.Write(data); err != nil {
		return err
	}
	return fh.Sync()
}
