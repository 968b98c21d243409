package swap

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/tilestore/internal/fs"
	"github.com/hupe1980/tilestore/internal/hash"
	"github.com/hupe1980/tilestore/internal/mem"
	"github.com/hupe1980/tilestore/internal/mmap"
	"github.com/hupe1980/tilestore/internal/resource"
)

const (
	// BlockSize is the allocation unit inside a swap file.
	BlockSize = 512

	// DefaultMaxFileSize caps a single swap file.
	DefaultMaxFileSize = 1 << 30

	checksumSize = 8
	minGrowth    = 1 << 20
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("swap: store is closed")
	// ErrFrameTooLarge is returned when a record cannot fit a single file.
	ErrFrameTooLarge = errors.New("swap: frame larger than swap file")
	// ErrFull is returned when no further swap files can be addressed.
	ErrFull = errors.New("swap: address space exhausted")
	// ErrChecksum is returned when a record does not match its checksum.
	ErrChecksum = errors.New("swap: checksum mismatch")
	// ErrInvalidSlot is returned for slots the store never handed out.
	ErrInvalidSlot = errors.New("swap: invalid slot")
)

// Slot addresses a record. The zero value is not a valid slot.
type Slot struct {
	file   uint32
	block  uint32
	blocks uint32
	length uint32
}

// Valid reports whether s refers to a record.
func (s Slot) Valid() bool { return s.blocks > 0 }

// Len returns the length of the stored frame.
func (s Slot) Len() int { return int(s.length) }

// Cap returns the largest frame the slot can hold.
func (s Slot) Cap() int { return int(s.blocks)*BlockSize - checksumSize }

func (s Slot) String() string {
	return fmt.Sprintf("swap[%d:%d+%d]", s.file, s.block, s.blocks)
}

// Stats describes store occupancy.
type Stats struct {
	Files      int
	FileBytes  int64
	UsedBytes  int64
	FreeBytes  int64
	Writes     int64
	Rewrites   int64
	Reads      int64
	MapFailure bool
}

type swapFile struct {
	f    fs.File
	size int64 // truncated length
	tail int64 // first never-allocated byte
	view *mmap.Mapping
}

// Store is a set of swap files with per-size-class free lists.
// It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	fs          fs.FileSystem
	dir         string
	maxFileSize int64
	rc          *resource.Controller
	logger      *slog.Logger

	files []*swapFile
	free  map[uint32]*roaring.Bitmap

	used     int64
	writes   int64
	rewrites int64
	reads    int64

	mapErr error
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithFileSystem sets the file system used to create swap files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(s *Store) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// WithDir sets the directory for swap files. Empty means os.TempDir.
func WithDir(dir string) Option {
	return func(s *Store) { s.dir = dir }
}

// WithMaxFileSize caps each swap file. Values are rounded up to BlockSize.
func WithMaxFileSize(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxFileSize = int64(mem.AlignUp(int(n), BlockSize))
		}
	}
}

// WithResourceController rate-limits swap IO.
func WithResourceController(rc *resource.Controller) Option {
	return func(s *Store) { s.rc = rc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store. Files are created lazily on the first write.
func New(opts ...Option) *Store {
	s := &Store{
		fs:          fs.Default,
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
		free:        make(map[uint32]*roaring.Bitmap),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) blocksPerFile() uint32 {
	return uint32(s.maxFileSize / BlockSize)
}

// Write stores frame and returns its slot. When prev is valid and large
// enough the record is rewritten in place; otherwise prev is released.
func (s *Store) Write(ctx context.Context, frame []byte, prev Slot) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Slot{}, ErrClosed
	}

	need := uint32(mem.AlignUp(len(frame)+checksumSize, BlockSize) / BlockSize)
	if int64(need)*BlockSize > s.maxFileSize {
		return Slot{}, ErrFrameTooLarge
	}

	slot := prev
	inPlace := prev.Valid() && prev.blocks >= need && int(prev.file) < len(s.files)
	if !inPlace {
		var err error
		if slot, err = s.allocate(need); err != nil {
			return Slot{}, err
		}
		s.used += int64(slot.blocks) * BlockSize
	}
	slot.length = uint32(len(frame))

	if err := s.writeRecord(ctx, slot, frame); err != nil {
		if !inPlace {
			s.release(slot)
		}
		return Slot{}, err
	}

	if inPlace {
		s.rewrites++
	} else if prev.Valid() {
		s.release(prev)
	}
	s.writes++
	return slot, nil
}

func (s *Store) writeRecord(ctx context.Context, slot Slot, frame []byte) error {
	sf := s.files[slot.file]
	off := int64(slot.block) * BlockSize

	rec := make([]byte, checksumSize+len(frame))
	binary.LittleEndian.PutUint64(rec, hash.Sum64(frame))
	copy(rec[checksumSize:], frame)

	w := resource.NewRateLimitedWriterAt(ctx, sf.f, s.rc)
	if _, err := w.WriteAt(rec, off); err != nil {
		return fmt.Errorf("swap: write %s: %w", slot, err)
	}
	return nil
}

// allocate takes a free slot of exactly n blocks or carves one from a file tail.
func (s *Store) allocate(n uint32) (Slot, error) {
	if bm, ok := s.free[n]; ok && !bm.IsEmpty() {
		id := bm.Minimum()
		bm.Remove(id)
		per := s.blocksPerFile()
		return Slot{file: id / per, block: id % per, blocks: n}, nil
	}

	size := int64(n) * BlockSize
	var sf *swapFile
	if len(s.files) > 0 {
		sf = s.files[len(s.files)-1]
		if sf.tail+size > s.maxFileSize {
			sf = nil
		}
	}
	if sf == nil {
		var err error
		if sf, err = s.createFile(); err != nil {
			return Slot{}, err
		}
	}

	if sf.tail+size > sf.size {
		if err := s.grow(sf, sf.tail+size); err != nil {
			return Slot{}, err
		}
	}

	slot := Slot{
		file:   uint32(len(s.files) - 1),
		block:  uint32(sf.tail / BlockSize),
		blocks: n,
	}
	sf.tail += size
	return slot, nil
}

func (s *Store) createFile() (*swapFile, error) {
	if uint64(len(s.files)+1)*uint64(s.blocksPerFile()) > math.MaxUint32 {
		return nil, ErrFull
	}

	f, err := s.fs.CreateTemp(s.dir, "tilestore-swap-*")
	if err != nil {
		return nil, fmt.Errorf("swap: create file: %w", err)
	}

	sf := &swapFile{f: f}
	s.files = append(s.files, sf)
	s.logger.Debug("swap file created", "path", f.Name(), "index", len(s.files)-1)
	return sf, nil
}

// grow truncates sf to at least want bytes and remaps its view.
func (s *Store) grow(sf *swapFile, want int64) error {
	size := max(sf.size*2, want, minGrowth)
	size = min(int64(mem.AlignUp(int(size), BlockSize)), s.maxFileSize)

	if err := sf.f.Truncate(size); err != nil {
		return fmt.Errorf("swap: grow %s: %w", sf.f.Name(), err)
	}
	sf.size = size

	if sf.view != nil {
		_ = sf.view.Close()
		sf.view = nil
	}
	if s.mapErr != nil {
		return nil
	}

	view, err := mmap.Map(sf.f.Fd(), int(size))
	if err != nil {
		s.mapErr = fmt.Errorf("swap: map %s: %w", sf.f.Name(), err)
		s.logger.Warn("swap file mapping failed, falling back to reads", "error", err)
		return nil
	}
	_ = view.Advise(mmap.AccessRandom)
	sf.view = view
	return nil
}

// Read verifies the record at slot and passes its frame to fn. The frame may
// alias the file mapping and must not be retained after fn returns.
func (s *Store) Read(ctx context.Context, slot Slot, fn func(frame []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !slot.Valid() || int(slot.file) >= len(s.files) {
		return ErrInvalidSlot
	}

	sf := s.files[slot.file]
	off := int64(slot.block) * BlockSize
	n := checksumSize + int(slot.length)
	if off+int64(n) > sf.tail {
		return ErrInvalidSlot
	}

	var rec []byte
	if sf.view != nil {
		if err := s.rc.AcquireIO(ctx, n); err != nil {
			return err
		}
		r, err := sf.view.Region(int(off), n)
		if err != nil {
			return fmt.Errorf("swap: read %s: %w", slot, err)
		}
		rec = r.Bytes()
	} else {
		rec = make([]byte, n)
		r := resource.NewRateLimitedReaderAt(ctx, sf.f, s.rc)
		if _, err := r.ReadAt(rec, off); err != nil {
			return fmt.Errorf("swap: read %s: %w", slot, err)
		}
	}

	frame := rec[checksumSize:]
	if hash.Sum64(frame) != binary.LittleEndian.Uint64(rec) {
		return fmt.Errorf("%w at %s", ErrChecksum, slot)
	}

	s.reads++
	return fn(frame)
}

// Free returns slot to its size class. Invalid slots are ignored.
func (s *Store) Free(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !slot.Valid() {
		return
	}
	s.release(slot)
}

func (s *Store) release(slot Slot) {
	bm, ok := s.free[slot.blocks]
	if !ok {
		bm = roaring.New()
		s.free[slot.blocks] = bm
	}
	id := slot.file*s.blocksPerFile() + slot.block
	if bm.CheckedAdd(id) {
		s.used -= int64(slot.blocks) * BlockSize
	}
}

// Err returns the mapping failure that degraded the store, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapErr
}

// Stats returns a snapshot of store occupancy.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Files:      len(s.files),
		UsedBytes:  s.used,
		Writes:     s.writes,
		Rewrites:   s.rewrites,
		Reads:      s.reads,
		MapFailure: s.mapErr != nil,
	}
	for _, sf := range s.files {
		st.FileBytes += sf.size
	}
	for class, bm := range s.free {
		st.FreeBytes += int64(bm.GetCardinality()) * int64(class) * BlockSize
	}
	return st
}

// Close unmaps, closes and deletes every swap file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, sf := range s.files {
		if sf.view != nil {
			errs = append(errs, sf.view.Close())
		}
		errs = append(errs, sf.f.Close())
		errs = append(errs, s.fs.Remove(sf.f.Name()))
	}
	s.files = nil
	s.free = nil
	return errors.Join(errs...)
}
