// Package blob re-exports the archive blob abstractions for stable internal
// imports. Only this package may wrap the infra-backed implementations; other
// packages depend on the blob.Store interface.
package blob

import (
	"context"

	"ordercore/internal/blob/core"
	"ordercore/internal/infra/blob/fs"
	"ordercore/internal/infra/blob/memory"
	"ordercore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrNotFound indicates a requested blob key does not exist.
var ErrNotFound = core.ErrNotFound

// NewFilesystem returns a filesystem-backed store rooted at root.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory returns an in-memory store for tests.
func NewMemory() Store { return memory.New() }

// OpenS3FromEnv returns an S3-backed store configured from the environment.
func OpenS3FromEnv(ctx context.Context) (Store, error) { return s3.OpenFromEnv(ctx) }
