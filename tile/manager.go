package tile

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hupe1980/tilestore/codec"
	"github.com/hupe1980/tilestore/internal/cache"
	"github.com/hupe1980/tilestore/internal/resource"
	"github.com/hupe1980/tilestore/internal/swap"
)

type residency uint8

const (
	resident residency = iota
	swapped
)

func (r residency) String() string {
	if r == swapped {
		return "swapped"
	}
	return "resident"
}

// record is the manager's bookkeeping for one tile.
type record struct {
	state residency
	slot  swap.Slot

	// gen changes whenever the tile may have been written.
	gen uint64

	// frame is a pre-compressed copy of the buffer, valid while frameGen == gen.
	frame    []byte
	frameGen uint64

	// raw marks a slot holding an uncompressed frame the compressor may shrink.
	raw bool
}

// Stats is a snapshot of manager state.
type Stats struct {
	Registered    int
	Resident      int
	Swapped       int
	Swappable     int
	ResidentBytes int64
	Ceiling       int
	SwapForbidden bool
	SwapOuts      int64
	SwapIns       int64

	// OutstandingBuffers counts pixel buffers handed out by the pools.
	OutstandingBuffers int
	Swap               swap.Stats
}

// Manager owns tile residency for every directory in the process. All
// residency changes happen under one mutex so that a buffer can never be
// swapped out between a reader's check and its use.
type Manager struct {
	mu sync.Mutex

	logger     *slog.Logger
	observer   Observer
	store      *swap.Store
	codec      codec.Codec
	rc         *resource.Controller
	compressor *Compressor

	maxResident int
	swappiness  int

	records   map[*Tile]*record
	swappable *cache.ReleaseOrder[*Tile]
	pools     map[int]allocator

	resident      int
	residentBytes int64
	swapped       int
	swapOuts      int64
	swapIns       int64

	swapErr error
	closed  bool
}

// NewManager creates a manager. Without WithSwapStore it swaps to anonymous
// files in os.TempDir.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:      slog.New(slog.DiscardHandler),
		observer:    NoopObserver{},
		codec:       codec.Default,
		maxResident: DefaultMaxResidentTiles,
		swappiness:  DefaultSwappiness,
		records:     make(map[*Tile]*record),
		swappable:   cache.NewReleaseOrder[*Tile](),
		pools:       make(map[int]allocator),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = swap.New(swap.WithLogger(m.logger), swap.WithResourceController(m.rc))
	}
	return m
}

// ceilingLocked is the resident tile count above which eviction runs.
// Higher swappiness lowers it.
func (m *Manager) ceilingLocked() int {
	return Ceiling(m.maxResident, m.swappiness)
}

// SetLimits updates the ceiling inputs and runs the eviction policy.
func (m *Manager) SetLimits(maxResidentTiles, swappiness int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maxResident, m.swappiness = normalizeLimits(maxResidentTiles, swappiness)
	m.logger.Debug("tile limits updated",
		"max_resident", m.maxResident, "swappiness", m.swappiness, "ceiling", m.ceilingLocked())
	m.evictLocked()
	m.reportLocked()
}

// Limits returns the effective maxResidentTiles and swappiness.
func (m *Manager) Limits() (maxResidentTiles, swappiness int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxResident, m.swappiness
}

// Register adds bookkeeping for a resident tile and, since it has no
// readers yet, offers it for eviction. Registering twice panics.
func (m *Manager) Register(t *Tile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[t]; ok {
		panic(fmt.Sprintf("tile: (%d,%d) registered twice", t.col, t.row))
	}
	if t.data == nil {
		panic(fmt.Sprintf("tile: (%d,%d) registered without a buffer", t.col, t.row))
	}

	m.records[t] = &record{state: resident}
	m.resident++
	m.residentBytes += int64(len(t.data))

	m.maybeSwapLocked(t)
	m.reportLocked()
}

// Deregister drops the bookkeeping for t. A swapped tile's slot goes back
// to the store's free list for its size class; a resident tile keeps its
// buffer, which the caller must release.
func (m *Manager) Deregister(t *Tile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[t]
	if !ok {
		return
	}

	m.swappable.Remove(t)
	if rec.state == resident {
		m.resident--
		m.residentBytes -= int64(len(t.data))
	} else {
		m.swapped--
	}
	if rec.slot.Valid() {
		m.store.Free(rec.slot)
	}
	delete(m.records, t)
	m.reportLocked()
}

// RequestBuffer returns a buffer for one tile of pixelSize. Its contents
// are unspecified.
func (m *Manager) RequestBuffer(pixelSize int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestBufferLocked(pixelSize)
}

// ReleaseBuffer returns buf to the pool for pixelSize or lets it be freed.
func (m *Manager) ReleaseBuffer(buf []byte, pixelSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseBufferLocked(buf, pixelSize)
}

func (m *Manager) requestBufferLocked(pixelSize int) []byte {
	a, ok := m.pools[pixelSize]
	if !ok {
		a = newAllocator(pixelSize)
		m.pools[pixelSize] = a
	}
	buf := a.get()

	n := int64(len(buf))
	if err := m.rc.AcquireMemory(n); err != nil {
		m.rc.ForceMemory(n)
	}
	return buf
}

func (m *Manager) releaseBufferLocked(buf []byte, pixelSize int) {
	if buf == nil {
		return
	}
	m.pools[pixelSize].put(buf)
	m.rc.ReleaseMemory(int64(len(buf)))
}

// EnsureResident faults a swapped tile back in. It returns a
// *CorruptTileError when the stored frame cannot be restored.
func (m *Manager) EnsureResident(t *Tile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureResidentLocked(t)
}

func (m *Manager) ensureResidentLocked(t *Tile) error {
	rec := m.mustRecordLocked(t)
	if rec.state == resident {
		return nil
	}

	start := time.Now()
	buf := m.requestBufferLocked(t.pixelSize)
	err := m.store.Read(context.Background(), rec.slot, func(frame []byte) error {
		n, err := codec.Decompress(frame, buf)
		if err != nil {
			return err
		}
		if n != len(buf) {
			return fmt.Errorf("%w: frame holds %d of %d bytes", codec.ErrCorrupt, n, len(buf))
		}
		return nil
	})
	m.observer.OnSwapIn(len(buf), time.Since(start), err)
	if err != nil {
		m.releaseBufferLocked(buf, t.pixelSize)
		m.logger.Error("swapped tile is corrupt",
			"col", t.col, "row", t.row, "slot", rec.slot.String(), "error", err)
		return &CorruptTileError{Col: t.col, Row: t.row, Cause: err}
	}

	t.data = buf
	rec.state = resident
	m.swapped--
	m.resident++
	m.residentBytes += int64(len(buf))
	m.swapIns++
	m.logger.Debug("tile swapped in", "col", t.col, "row", t.row, "slot", rec.slot.String())

	if t.readers.Load() == 0 {
		m.swappable.PushBack(t)
	}
	m.reportLocked()
	return nil
}

// MaybeSwap offers a reader-free tile for eviction and runs the policy.
func (m *Manager) MaybeSwap(t *Tile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeSwapLocked(t)
	m.reportLocked()
}

func (m *Manager) maybeSwapLocked(t *Tile) {
	rec := m.records[t]
	if rec == nil || t.readers.Load() > 0 {
		return
	}
	if rec.state == resident {
		m.swappable.PushBack(t)
		if m.compressor != nil && m.codec != nil && rec.frame == nil {
			m.compressor.Enqueue(t)
		}
	}
	m.evictLocked()
}

func (m *Manager) evictLocked() {
	ceiling := m.ceilingLocked()
	for m.resident > ceiling || m.rc.OverMemoryLimit() {
		if m.swapErr != nil || m.closed {
			return
		}

		t, ok := m.swappable.PopOldest()
		if !ok {
			return
		}
		rec := m.records[t]
		if rec == nil || rec.state != resident || t.readers.Load() > 0 {
			continue
		}

		if err := m.swapOutLocked(t, rec); err != nil {
			m.swappable.PushBack(t)
			m.forbidSwapLocked(err)
			return
		}
	}
}

func (m *Manager) swapOutLocked(t *Tile, rec *record) error {
	start := time.Now()
	frame, raw := m.frameLocked(t, rec)

	slot, err := m.store.Write(context.Background(), frame, rec.slot)
	m.observer.OnSwapOut(len(t.data), len(frame), time.Since(start), err)
	if err != nil {
		return err
	}

	rec.slot = slot
	rec.state = swapped
	rec.frame = nil
	rec.raw = raw

	m.resident--
	m.residentBytes -= int64(len(t.data))
	m.swapped++
	m.swapOuts++
	m.releaseBufferLocked(t.data, t.pixelSize)
	t.data = nil

	m.logger.Debug("tile swapped out",
		"col", t.col, "row", t.row, "frame_bytes", len(frame), "slot", slot.String())

	if raw {
		m.compressor.Enqueue(t)
	}
	if err := m.store.Err(); err != nil {
		m.forbidSwapLocked(err)
	}
	return nil
}

// frameLocked picks the frame to write for t. A valid pre-compressed frame
// wins; with a running compressor the buffer is written raw and shrunk later.
func (m *Manager) frameLocked(t *Tile, rec *record) (frame []byte, raw bool) {
	if rec.frame != nil && rec.frameGen == rec.gen {
		return rec.frame, false
	}
	if m.codec != nil && m.compressor != nil && m.compressor.Running() {
		return codec.Encode(nil, t.data), true
	}
	return codec.Encode(m.codec, t.data), false
}

func (m *Manager) forbidSwapLocked(err error) {
	if m.swapErr != nil {
		return
	}
	m.swapErr = err
	m.logger.Warn("swapping forbidden for the rest of the session",
		"error", err, "resident", m.resident, "ceiling", m.ceilingLocked())
}

// SwapErr returns an error wrapping ErrSwapForbidden and its cause once
// swapping has been disabled.
func (m *Manager) SwapErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.swapErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSwapForbidden, m.swapErr)
}

func (m *Manager) addReader(t *Tile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.readers.Load() == 0 {
		rec := m.mustRecordLocked(t)
		if err := m.ensureResidentLocked(t); err != nil {
			return err
		}
		m.swappable.Remove(t)
		rec.gen++
		rec.frame = nil
	}
	t.readers.Add(1)
	return nil
}

func (m *Manager) removeReader(t *Tile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := t.readers.Add(-1)
	if n < 0 {
		t.readers.Add(1)
		panic(fmt.Sprintf("tile: (%d,%d) RemoveReader without AddReader", t.col, t.row))
	}
	if n == 0 {
		m.maybeSwapLocked(t)
		m.reportLocked()
	}
}

func (m *Manager) isResident(t *Tile) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[t]
	return rec != nil && rec.state == resident
}

func (m *Manager) mustRecordLocked(t *Tile) *record {
	rec := m.records[t]
	if rec == nil {
		panic(fmt.Sprintf("tile: (%d,%d) is not registered", t.col, t.row))
	}
	return rec
}

func (m *Manager) attachCompressor(c *Compressor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compressor = c
}

func (m *Manager) compressorRef() *Compressor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compressor
}

// compress runs one compressor job for t: pre-compress a resident swappable
// tile, or shrink a raw frame already in swap.
func (m *Manager) compress(t *Tile) (in, out int, ok bool) {
	m.mu.Lock()
	rec := m.records[t]
	if rec == nil || m.codec == nil {
		m.mu.Unlock()
		return 0, 0, false
	}
	if rec.state == resident {
		return m.precompressUnlock(t, rec)
	}
	return m.shrinkUnlock(t, rec)
}

// precompressUnlock is entered with m.mu held and releases it while encoding.
func (m *Manager) precompressUnlock(t *Tile, rec *record) (int, int, bool) {
	if t.readers.Load() > 0 || (rec.frame != nil && rec.frameGen == rec.gen) {
		m.mu.Unlock()
		return 0, 0, false
	}
	gen, c := rec.gen, m.codec
	src := bytes.Clone(t.data)
	m.mu.Unlock()

	frame := codec.Encode(c, src)

	m.mu.Lock()
	if m.records[t] == rec && rec.state == swapped {
		// Evicted while encoding; the frame went out raw instead.
		return m.shrinkUnlock(t, rec)
	}
	defer m.mu.Unlock()
	if m.records[t] != rec || rec.state != resident || rec.gen != gen {
		return 0, 0, false
	}
	rec.frame = frame
	rec.frameGen = gen
	return len(src), len(frame), true
}

// shrinkUnlock is entered with m.mu held and releases it while encoding.
func (m *Manager) shrinkUnlock(t *Tile, rec *record) (int, int, bool) {
	if !rec.raw {
		m.mu.Unlock()
		return 0, 0, false
	}
	slot, gen, c := rec.slot, rec.gen, m.codec

	var payload []byte
	err := m.store.Read(context.Background(), slot, func(frame []byte) error {
		_, flag, err := codec.Header(frame)
		if err != nil {
			return err
		}
		if flag == codec.FlagRaw {
			payload = bytes.Clone(frame[codec.HeaderSize:])
		}
		return nil
	})
	m.mu.Unlock()
	if err != nil || payload == nil {
		return 0, 0, false
	}

	frame := codec.Encode(c, payload)

	m.mu.Lock()
	if m.records[t] == rec && rec.state == swapped && rec.raw && (rec.slot != slot || rec.gen != gen) {
		// Swapped in and out again while encoding; start over on the new frame.
		return m.shrinkUnlock(t, rec)
	}
	defer m.mu.Unlock()
	if m.records[t] != rec || rec.state != swapped || rec.slot != slot || rec.gen != gen {
		return 0, 0, false
	}
	rec.raw = false
	if _, flag, _ := codec.Header(frame); flag == codec.FlagRaw {
		return 0, 0, false
	}

	// A fresh slot keeps the raw frame intact if the write fails.
	next, err := m.store.Write(context.Background(), frame, swap.Slot{})
	if err != nil {
		m.logger.Warn("recompressing swapped tile failed", "col", t.col, "row", t.row, "error", err)
		return 0, 0, false
	}
	m.store.Free(slot)
	rec.slot = next
	return len(payload), len(frame), true
}

func (m *Manager) reportLocked() {
	m.observer.OnResident(m.resident, m.residentBytes)
}

// Stats returns a snapshot of manager state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Registered:    len(m.records),
		Resident:      m.resident,
		Swapped:       m.swapped,
		Swappable:     m.swappable.Len(),
		ResidentBytes: m.residentBytes,
		Ceiling:       m.ceilingLocked(),
		SwapForbidden: m.swapErr != nil,
		SwapOuts:      m.swapOuts,
		SwapIns:       m.swapIns,

		OutstandingBuffers: m.outstandingLocked(),
		Swap:               m.store.Stats(),
	}
}

func (m *Manager) outstandingLocked() int {
	n := 0
	for _, a := range m.pools {
		n += a.outstanding()
	}
	return n
}

// Close releases pooled slabs and deletes the swap files. Tiles must not be
// used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if n := m.outstandingLocked(); n > 0 {
		m.logger.Debug("tile manager closed with outstanding buffers", "buffers", n)
	}
	for _, a := range m.pools {
		a.close()
	}
	m.swappable.Clear()
	if len(m.records) > 0 {
		m.logger.Debug("tile manager closed with live tiles", "tiles", len(m.records))
	}
	return m.store.Close()
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
