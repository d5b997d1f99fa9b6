package storutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/manta-community/manta-go/hofp"
	"github.com/manta-community/manta-go/log"
	"github.com/manta-community/manta-go/stor"
)

// UploadDirectoryOptions encapsulates the options available when using the 'UploadDirectory' function.
type UploadDirectoryOptions struct {
	// Client used to create the remote directories/objects, required.
	Client stor.Client

	// LocalPath is the local directory being uploaded.
	LocalPath string

	// RemotePath is the namespace directory the tree is uploaded beneath, created if missing.
	RemotePath string

	// Concurrency is the number of objects uploaded in parallel. Defaults to the number of vCPUs.
	Concurrency int

	// Logger is the passed Logger struct that implements the Log method for logger the user wants to use.
	Logger log.Logger
}

// UploadDirectory mirrors a local directory tree into the namespace; directories are created first (top-down, since a
// parent must exist before its children) then objects are uploaded in parallel.
func UploadDirectory(ctx context.Context, opts UploadDirectoryOptions) error {
	if opts.Client == nil {
		return errors.New("a namespace client is required")
	}

	var files []string

	// WalkDir visits parents before children so remote directories can be created as they're seen
	err := filepath.WalkDir(opts.LocalPath, func(local string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() {
			files = append(files, local)
			return nil
		}

		return Mkdirp(ctx, opts.Client, remotePath(opts, local))
	})
	if err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	pool := hofp.NewPool(hofp.Options{
		Context:   ctx,
		Size:      opts.Concurrency,
		LogPrefix: "(storutil)",
		Logger:    opts.Logger,
	})

	upload := func(local string) error {
		return pool.Queue(func(ctx context.Context) error { return uploadFile(ctx, opts, local) })
	}

	for _, local := range files {
		if err := upload(local); err != nil {
			break
		}
	}

	return pool.Stop()
}

// uploadFile uploads a single local file to its mirrored namespace path.
func uploadFile(ctx context.Context, opts UploadDirectoryOptions, local string) error {
	file, err := os.Open(local)
	if err != nil {
		return err
	}
	defer file.Close()

	stats, err := file.Stat()
	if err != nil {
		return err
	}

	_, err = opts.Client.PutObject(ctx, stor.PutObjectOptions{
		Path:          remotePath(opts, local),
		Body:          file,
		ContentLength: stats.Size(),
	})

	return err
}

// remotePath maps a local path beneath 'LocalPath' to its mirrored path beneath 'RemotePath'.
func remotePath(opts UploadDirectoryOptions, local string) string {
	rel, err := filepath.Rel(opts.LocalPath, local)
	if err != nil || rel == "." {
		return opts.RemotePath
	}

	return path.Join(opts.RemotePath, filepath.ToSlash(rel))
}
