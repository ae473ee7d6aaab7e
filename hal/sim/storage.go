package sim

import (
	"io"
	"os"
	"sync"
)

// Storage is a block storage backend for a simulated device.
// Implementations must be safe for concurrent use.
type Storage interface {
	// BlockSize returns the size of a storage block in bytes.
	BlockSize() uint32

	// BlockCount returns the total number of blocks.
	BlockCount() uint64

	// ReadBlocks fills buf with consecutive blocks starting at lba.
	// len(buf) must be a multiple of the block size.
	ReadBlocks(lba uint64, buf []byte) error

	// WriteBlocks writes consecutive blocks from buf starting at lba.
	// len(buf) must be a multiple of the block size.
	WriteBlocks(lba uint64, buf []byte) error

	// Sync flushes any cached writes to the backing medium.
	Sync() error

	// ReadOnly reports whether the medium rejects writes.
	ReadOnly() bool
}

// MemoryStorage is an in-memory Storage, suitable for tests.
type MemoryStorage struct {
	mu        sync.RWMutex
	data      []byte
	blockSize uint32
	readOnly  bool
}

// NewMemoryStorage creates in-memory storage of the given total size and
// block size. size must be a multiple of blockSize.
func NewMemoryStorage(size uint64, blockSize uint32) *MemoryStorage {
	return &MemoryStorage{
		data:      make([]byte, size),
		blockSize: blockSize,
	}
}

func (m *MemoryStorage) BlockSize() uint32 {
	return m.blockSize
}

func (m *MemoryStorage) BlockCount() uint64 {
	return uint64(len(m.data)) / uint64(m.blockSize)
}

func (m *MemoryStorage) ReadBlocks(lba uint64, buf []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	offset := lba * uint64(m.blockSize)
	if offset+uint64(len(buf)) > uint64(len(m.data)) {
		return io.EOF
	}
	copy(buf, m.data[offset:])
	return nil
}

func (m *MemoryStorage) WriteBlocks(lba uint64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readOnly {
		return os.ErrPermission
	}
	offset := lba * uint64(m.blockSize)
	if offset+uint64(len(buf)) > uint64(len(m.data)) {
		return io.EOF
	}
	copy(m.data[offset:], buf)
	return nil
}

func (m *MemoryStorage) Sync() error {
	return nil
}

func (m *MemoryStorage) ReadOnly() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readOnly
}

// SetReadOnly toggles write protection.
func (m *MemoryStorage) SetReadOnly(readOnly bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly = readOnly
}

// FileStorage is a Storage backed by a disk image file.
type FileStorage struct {
	mu        sync.RWMutex
	file      *os.File
	blockSize uint32
	size      uint64
	readOnly  bool
}

// NewFileStorage opens a disk image as block storage. Capacity is the
// file size rounded down to a whole number of blocks.
func NewFileStorage(path string, blockSize uint32, readOnly bool) (*FileStorage, error) {
	flags := os.O_RDWR
	if readOnly {
		flags = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	return &FileStorage{
		file:      file,
		blockSize: blockSize,
		size:      uint64(stat.Size()),
		readOnly:  readOnly,
	}, nil
}

func (f *FileStorage) BlockSize() uint32 {
	return f.blockSize
}

func (f *FileStorage) BlockCount() uint64 {
	return f.size / uint64(f.blockSize)
}

func (f *FileStorage) ReadBlocks(lba uint64, buf []byte) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	offset := int64(lba * uint64(f.blockSize))
	if uint64(offset)+uint64(len(buf)) > f.size {
		return io.EOF
	}
	_, err := f.file.ReadAt(buf, offset)
	return err
}

func (f *FileStorage) WriteBlocks(lba uint64, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readOnly {
		return os.ErrPermission
	}
	offset := int64(lba * uint64(f.blockSize))
	if uint64(offset)+uint64(len(buf)) > f.size {
		return io.EOF
	}
	_, err := f.file.WriteAt(buf, offset)
	return err
}

func (f *FileStorage) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readOnly {
		return nil
	}
	return f.file.Sync()
}

func (f *FileStorage) ReadOnly() bool {
	return f.readOnly
}

// Close closes the underlying image file.
func (f *FileStorage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
