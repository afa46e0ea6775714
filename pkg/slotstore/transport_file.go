package slotstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileTransport stores the flash bank as a raw image file, the same format
// produced by a programmer's bank dump. Missing files read as erased.
type FileTransport struct {
	mu   sync.Mutex
	path string
	size uint32
}

// NewFileTransport creates a transport backed by the image at path.
// size is the bank size; accesses beyond it fail.
func NewFileTransport(path string, size uint32) *FileTransport {
	return &FileTransport{path: path, size: size}
}

// Path returns the image path.
func (f *FileTransport) Path() string {
	return f.path
}

// ReadRegion reads the requested range. Bytes past the end of the image read
// as erased, like a missing image.
func (f *FileTransport) ReadRegion(ctx context.Context, offset, length uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(offset, uint64(length)); err != nil {
		return nil, err
	}

	buf := bytes.Repeat([]byte{0xFF}, int(length))
	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return buf, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// A short ReadAt leaves the tail of buf erased.
	if _, err := file.ReadAt(buf, int64(offset)); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf, nil
}

// EraseRegion fills the requested range with 0xFF, creating the image if needed.
func (f *FileTransport) EraseRegion(ctx context.Context, offset, length uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(offset, uint64(length)); err != nil {
		return err
	}
	return f.update(offset, int(length), erase)
}

// WriteRegion programs data at offset with flash semantics.
func (f *FileTransport) WriteRegion(ctx context.Context, offset uint32, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(offset, uint64(len(data))); err != nil {
		return err
	}
	return f.update(offset, len(data), func(b []byte) { program(b, data) })
}

// update loads [offset, offset+n) padded with erased bytes, applies fn and
// writes the range back.
func (f *FileTransport) update(offset uint32, n int, fn func([]byte)) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := bytes.Repeat([]byte{0xFF}, n)
	if _, err := file.ReadAt(buf, int64(offset)); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	fn(buf)

	// Pad any gap between the current end of the image and offset.
	info, err := file.Stat()
	if err != nil {
		return err
	}
	if gap := int64(offset) - info.Size(); gap > 0 {
		if _, err := file.WriteAt(bytes.Repeat([]byte{0xFF}, int(gap)), info.Size()); err != nil {
			return err
		}
	}

	if _, err := file.WriteAt(buf, int64(offset)); err != nil {
		return err
	}
	return file.Sync()
}

func (f *FileTransport) check(offset uint32, length uint64) error {
	if uint64(offset)+length > uint64(f.size) {
		return fmt.Errorf("%w: 0x%x+0x%x beyond 0x%x", ErrOutOfBounds, offset, length, f.size)
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*FileTransport)(nil)
