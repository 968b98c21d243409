// Package fs provides filesystem abstractions for the swap store and for
// fault injection in tests.
//
// The package defines two key interfaces:
//
//   - [File]: an open swap file with positional read/write and truncation
//   - [FileSystem]: temp-file creation, open, remove, stat
//
// # Implementations
//
//   - [LocalFS]: Production implementation using standard os package
//   - [FaultyFS]: Test utility that injects create, write and truncate failures
//
// # Usage
//
// Production code uses fs.Default:
//
//	f, err := fs.Default.CreateTemp(dir, "tilestore-swap-*")
//
// Tests inject [FaultyFS] to drive the swap store into its degraded mode:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.SetLimit(64 << 10) // fail once 64 KiB have been written
//
// # Design Notes
//
// This package does NOT take context.Context parameters. Local file
// operations are not interruptible at the syscall level.
package fs
