package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

/* Structs */

type Path struct {
	Path         string
	RealPath     string
	FileName     string
	Directory    string
	IsDir        bool
	Size         int64
	ModifiedTime time.Time
}

/* Types */

type callbackAllowed func(string) *string

/* Public */

func GetPathsInFolder(log *logrus.Entry, folder string, includeFiles bool, includeFolders bool,
	acceptFn callbackAllowed) ([]Path, uint64, error) {
	var paths []Path
	var size uint64 = 0

	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walk func: %w", err)
		}

		// skip files if not wanted
		if !includeFiles && !info.IsDir() {
			log.Tracef("Skipping file: %s", path)
			return nil
		}

		// skip folders if not wanted
		if !includeFolders && info.IsDir() {
			log.Tracef("Skipping folder: %s", path)
			return nil
		}

		// skip paths rejected by accept callback
		finalPath := path
		if acceptFn != nil {
			acceptedPath := acceptFn(path)
			if acceptedPath == nil {
				log.Tracef("Skipping rejected path: %s", path)
				return nil
			}
			finalPath = *acceptedPath
		}

		paths = append(paths, Path{
			Path:         finalPath,
			RealPath:     path,
			FileName:     info.Name(),
			Directory:    filepath.Dir(path),
			IsDir:        info.IsDir(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
		size += uint64(info.Size())

		return nil
	})
	if err != nil {
		return paths, size, fmt.Errorf("walk %s: %w", folder, err)
	}

	return paths, size, nil
}

// TorrentFiles expands args into .torrent file paths.
// Files are taken as given, folders are walked and contribute their *.torrent files in lexical order.
func TorrentFiles(log *logrus.Entry, args []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat: %w", err)
		}

		if !info.IsDir() {
			add(arg)
			continue
		}

		found, _, err := GetPathsInFolder(log, arg, true, false, acceptTorrent)
		if err != nil {
			return nil, err
		}

		sort.Slice(found, func(i, j int) bool {
			return found[i].Path < found[j].Path
		})

		log.Debugf("Found %d torrent files in %s", len(found), arg)
		for _, p := range found {
			add(p.Path)
		}
	}

	return files, nil
}

/* Private */

func acceptTorrent(path string) *string {
	if !strings.EqualFold(filepath.Ext(path), ".torrent") {
		return nil
	}
	return &path
}
