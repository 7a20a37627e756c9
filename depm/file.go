package depm

import (
	"bytes"
	"io"
	"os"
	"time"

	"mxc/common"

	"github.com/pkg/errors"
)

// VirtualFile is the content provider behind a Source: a file on disk, an
// entry in a library archive, or generated text.
type VirtualFile interface {
	// Name returns the identifying path of the file.
	Name() string

	// LastModified returns the file's modification time.  Files which do not
	// exist return the zero time.
	LastModified() time.Time

	// Exists returns whether the file can currently be read.
	Exists() bool

	// Open opens the file for reading.
	Open() (io.ReadCloser, error)

	// MimeType returns the MIME type of the file's content.
	MimeType() string
}

// ReadFile reads the full contents of a virtual file.
func ReadFile(f VirtualFile) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", f.Name())
	}
	defer rc.Close()

	buf, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", f.Name())
	}

	return buf, nil
}

// -----------------------------------------------------------------------------

// LocalFile is a file on the local file system.
type LocalFile struct {
	path string
}

// NewLocalFile creates a new local file for the given path.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

func (lf *LocalFile) Name() string {
	return lf.path
}

func (lf *LocalFile) LastModified() time.Time {
	finfo, err := os.Stat(lf.path)
	if err != nil {
		return time.Time{}
	}

	return finfo.ModTime()
}

func (lf *LocalFile) Exists() bool {
	finfo, err := os.Stat(lf.path)
	return err == nil && !finfo.IsDir()
}

func (lf *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(lf.path)
}

func (lf *LocalFile) MimeType() string {
	return common.MimeTypeFromPath(lf.path)
}

// -----------------------------------------------------------------------------

// TextFile is an in-memory file.  It backs generated sources and fixtures.
type TextFile struct {
	name     string
	mimeType string
	text     []byte
	modified time.Time
	missing  bool
}

// NewTextFile creates a new in-memory file.  If mimeType is empty, it is
// derived from the name.
func NewTextFile(name, mimeType, text string, modified time.Time) *TextFile {
	if mimeType == "" {
		mimeType = common.MimeTypeFromPath(name)
	}

	return &TextFile{name: name, mimeType: mimeType, text: []byte(text), modified: modified}
}

func (tf *TextFile) Name() string {
	return tf.name
}

func (tf *TextFile) LastModified() time.Time {
	if tf.missing {
		return time.Time{}
	}

	return tf.modified
}

func (tf *TextFile) Exists() bool {
	return !tf.missing
}

func (tf *TextFile) Open() (io.ReadCloser, error) {
	if tf.missing {
		return nil, errors.Wrap(os.ErrNotExist, tf.name)
	}

	return io.NopCloser(bytes.NewReader(tf.text)), nil
}

func (tf *TextFile) MimeType() string {
	return tf.mimeType
}

// Text returns the current text of the file.
func (tf *TextFile) Text() string {
	return string(tf.text)
}

// SetText replaces the file content and its modification time.
func (tf *TextFile) SetText(text string, modified time.Time) {
	tf.text = []byte(text)
	tf.modified = modified
}

// Touch updates the modification time without changing the content.
func (tf *TextFile) Touch(modified time.Time) {
	tf.modified = modified
}

// SetMissing marks the file as deleted or restores it.
func (tf *TextFile) SetMissing(missing bool) {
	tf.missing = missing
}
