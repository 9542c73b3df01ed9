// Package imagefind discovers image and video files under input paths.
package imagefind

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"meshbatch/internal/logging"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".png": true,
	".exr": true, ".rw2": true, ".cr2": true, ".cr3": true, ".nef": true,
	".arw": true, ".dng": true, ".raf": true, ".orf": true, ".heic": true,
	".webp": true, ".bmp": true, ".gif": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".m4v": true, ".mkv": true,
}

// FilesByType groups discovered files by media type.
type FilesByType struct {
	Images []string
	Videos []string
	Other  []string
}

// Extend appends other's files to f.
func (f *FilesByType) Extend(other FilesByType) {
	f.Images = append(f.Images, other.Images...)
	f.Videos = append(f.Videos, other.Videos...)
	f.Other = append(f.Other, other.Other...)
}

func (f *FilesByType) add(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case IsImage(path):
		f.Images = append(f.Images, path)
	case videoExtensions[ext]:
		f.Videos = append(f.Videos, path)
	default:
		f.Other = append(f.Other, path)
	}
}

// IsImage reports whether path has a known image extension.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Finder implements the image discovery contract used by the batch launcher.
type Finder struct{}

// Find returns the image files of paths. Videos and other files are logged
// and left out.
func (Finder) Find(paths []string, recursive bool) []string {
	found := Find(paths, recursive)
	log := logging.New("imagefind")
	if len(found.Videos) > 0 {
		log.Warn("videos are not supported, skipped", "count", len(found.Videos), "first", found.Videos[0])
	}
	if len(found.Other) > 0 {
		log.Debug("non-image files skipped", "count", len(found.Other))
	}
	return found.Images
}

// Find classifies files given directly and files inside folders. Results keep
// the order of paths; entries inside a folder are sorted. Unreadable paths are
// logged and skipped.
func Find(paths []string, recursive bool) FilesByType {
	results := make([]FilesByType, len(paths))
	// scan logs and skips what it cannot read, so no goroutine returns an
	// error; the group only bounds concurrency.
	g := new(errgroup.Group)
	g.SetLimit(4)
	for i, p := range paths {
		g.Go(func() error {
			results[i] = scan(p, recursive)
			return nil
		})
	}
	_ = g.Wait()

	var out FilesByType
	for _, r := range results {
		out.Extend(r)
	}
	return out
}

func scan(root string, recursive bool) FilesByType {
	log := logging.New("imagefind")
	var out FilesByType

	info, err := os.Stat(root)
	if err != nil {
		log.Warn("skip input", "path", root, "error", err)
		return out
	}
	if !info.IsDir() {
		out.add(root)
		return out
	}

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			log.Warn("skip folder", "path", root, "error", err)
			return out
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				out.add(filepath.Join(root, e.Name()))
			}
		}
		return out
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("skip entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		log.Warn("walk folder", "path", root, "error", err)
	}
	sort.Strings(files)
	for _, f := range files {
		out.add(f)
	}
	return out
}
