package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// addTree subscribes dir and its subdirectories and returns the regular files
// found along the way. Each directory is subscribed before it is listed, so a
// file is either returned here or reported by the OS.
func (watcher *Watcher) addTree(dir string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != dir && watcher.skipped(path) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return watcher.addWatch(path)
		}
		if entry.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (watcher *Watcher) addWatch(path string) error {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	if _, ok := watcher.dirs[path]; ok {
		watcher.mutex.Unlock()
		return nil
	}
	if len(watcher.dirs) >= watcher.maxWatches {
		watcher.mutex.Unlock()
		return ErrMaxWatchesExceeded
	}
	watcher.dirs[path] = struct{}{}
	activeCount := len(watcher.dirs)
	watcher.mutex.Unlock()

	if err := watcher.watcher.Add(path); err != nil {
		watcher.mutex.Lock()
		delete(watcher.dirs, path)
		watcher.mutex.Unlock()
		watcher.logWarn("watch add failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}
	watcher.logDebug("watch added", path, activeCount)
	return nil
}

func (watcher *Watcher) trackFiles(files []string) {
	if len(files) == 0 {
		return
	}
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	if watcher.closed {
		return
	}
	for _, file := range files {
		watcher.files[file] = struct{}{}
	}
}

// forgetTree drops subscriptions for a path that was removed or moved away,
// along with everything below it. It reports whether path itself was a watched
// directory and returns the known files that lived below it, sorted, so their
// removal can be reported.
func (watcher *Watcher) forgetTree(path string) (bool, []string) {
	prefix := path + string(os.PathSeparator)
	released := []string{}
	orphaned := []string{}
	watcher.mutex.Lock()
	_, wasDir := watcher.dirs[path]
	for dir := range watcher.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(watcher.dirs, dir)
			released = append(released, dir)
		}
	}
	delete(watcher.files, path)
	for file := range watcher.files {
		if strings.HasPrefix(file, prefix) {
			delete(watcher.files, file)
			orphaned = append(orphaned, file)
		}
	}
	activeCount := len(watcher.dirs)
	watcher.mutex.Unlock()

	for _, dir := range released {
		// Deleted directories were already released by the kernel.
		_ = watcher.watcher.Remove(dir)
		watcher.logDebug("watch removed", dir, activeCount)
	}
	slices.Sort(orphaned)
	return wasDir, orphaned
}
