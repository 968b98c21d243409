package fs

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Fault defines specific failure behavior.
type Fault struct {
	FailAfterBytes int64 // Fail writes after this many bytes written TO THIS FILE. -1 to disable.
	FailOnTruncate bool
	FailOnClose    bool
	Err            error
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS      FileSystem
	mu      sync.Mutex
	rules   map[string]Fault // Filename pattern -> Fault
	Default Fault            // Fallback

	Err          error
	FailOnCreate bool
	written      int64
	globalLimit  int64
	created      int
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:    fs,
		rules: make(map[string]Fault),
		Default: Fault{
			FailAfterBytes: -1,
		},
		Err:         fmt.Errorf("injected fault error"),
		globalLimit: -1,
	}
}

// GetWritten returns the total bytes written so far across all files.
func (f *FaultyFS) GetWritten() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

// Created returns the number of files successfully created.
func (f *FaultyFS) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// SetLimit sets a byte limit shared by all files. -1 disables it.
func (f *FaultyFS) SetLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globalLimit = limit
}

// SetFailOnCreate makes subsequent CreateTemp calls fail.
func (f *FaultyFS) SetFailOnCreate(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailOnCreate = fail
}

// AddRule adds a fault injection rule for a specific file pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

func (f *FaultyFS) CreateTemp(dir, pattern string) (File, error) {
	f.mu.Lock()
	failCreate := f.FailOnCreate
	err := f.Err
	f.mu.Unlock()
	if failCreate {
		return nil, err
	}

	file, err := f.FS.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	return f.wrap(file), nil
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f.wrap(file), nil
}

func (f *FaultyFS) wrap(file File) File {
	f.mu.Lock()
	fault := f.Default
	for pattern, rule := range f.rules {
		if strings.Contains(file.Name(), pattern) {
			fault = rule
		}
	}
	if fault.Err == nil {
		fault.Err = f.Err
	}
	f.mu.Unlock()

	return &faultyFile{File: file, fs: f, fault: fault}
}

func (f *FaultyFS) Remove(name string) error {
	return f.FS.Remove(name)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

type faultyFile struct {
	File
	fs      *FaultyFS
	fault   Fault
	written int64
}

// admit charges n bytes against the per-file and global limits.
func (ff *faultyFile) admit(n int) error {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(n) > ff.fault.FailAfterBytes {
		return ff.fault.Err
	}

	ff.fs.mu.Lock()
	defer ff.fs.mu.Unlock()
	if ff.fs.globalLimit >= 0 && ff.fs.written+int64(n) > ff.fs.globalLimit {
		if ff.fs.Err != nil {
			return ff.fs.Err
		}
		return fmt.Errorf("injected fault error")
	}
	ff.fs.written += int64(n)
	return nil
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if err := ff.admit(len(p)); err != nil {
		return 0, err
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) WriteAt(p []byte, off int64) (int, error) {
	if err := ff.admit(len(p)); err != nil {
		return 0, err
	}
	n, err := ff.File.WriteAt(p, off)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Truncate(size int64) error {
	if ff.fault.FailOnTruncate {
		return ff.fault.Err
	}
	return ff.File.Truncate(size)
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		ff.File.Close()
		return ff.fault.Err
	}
	return ff.File.Close()
}
