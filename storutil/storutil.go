// Package storutil provides higher level helpers built on top of the namespace client; recursive directory creation,
// tree walking and parallel uploads.
package storutil

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/manta-community/manta-go/stor"
)

// Mkdirp creates the given directory along with any missing parents, the equivalent of 'mkdir -p'. Creating a
// directory which already exists is not an error so the whole chain is simply created top-down.
func Mkdirp(ctx context.Context, client stor.Client, dir string) error {
	segments := strings.Split(strings.TrimPrefix(path.Clean(dir), "/"), "/")
	if len(segments) < 2 || segments[0] == "" {
		return fmt.Errorf("invalid directory path %q, expected at least '/account/stor'", dir)
	}

	for i := 2; i <= len(segments); i++ {
		err := client.PutDirectory(ctx, stor.PutDirectoryOptions{Path: "/" + strings.Join(segments[:i], "/")})
		if err != nil {
			return err
		}
	}

	return nil
}

// WalkFunc is executed once per directory visited by 'Walk', given the directories path and its child entries split
// into sub-directories and non-directories. Returning an error stops the walk.
type WalkFunc func(dir string, dirs, objects []*stor.DirEntry) error

// Walk visits the given directory and all of its sub-directories top-down, entries within each directory are in
// service order.
func Walk(ctx context.Context, client stor.Client, root string, fn WalkFunc) error {
	if fn == nil {
		return errors.New("a walk function is required")
	}

	var dirs, objects []*stor.DirEntry

	err := client.IterateDirectory(ctx, stor.IterateDirectoryOptions{
		Path: root,
		Func: func(entry *stor.DirEntry) error {
			if entry.IsDir() {
				dirs = append(dirs, entry)
			} else {
				objects = append(objects, entry)
			}

			return nil
		},
	})
	if err != nil {
		return err
	}

	if err := fn(root, dirs, objects); err != nil {
		return err
	}

	for _, dir := range dirs {
		if err := Walk(ctx, client, root+"/"+dir.Name, fn); err != nil {
			return err
		}
	}

	return nil
}
