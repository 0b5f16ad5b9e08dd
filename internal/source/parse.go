package source

import (
	"bufio"
	"errors"
	"io"
	"os"
	"regexp"

	"incgraph/internal/changeset"
	"incgraph/internal/fsutil"
	"incgraph/internal/logging"
)

var includeDirective = regexp.MustCompile(`^\s*#\s*include\s*(?:"([^"]+)"|<([^>]+)>)`)

var errIsDirectory = errors.New("path is a directory")

// Parser extracts include targets from a single file.
type Parser struct {
	Logger *logging.Logger
}

// Parse reads path line by line and collects include targets in order.
// Duplicates are kept. ok is false when the file cannot be read.
func (p Parser) Parse(path string) (changeset.FileMetadata, bool) {
	includes, err := readIncludes(path)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Debug("parse skipped", map[string]string{
				"path":  path,
				"error": err.Error(),
			})
		}
		return changeset.FileMetadata{}, false
	}
	return changeset.FileMetadata{
		Key:      fsutil.NormalizeKey(path),
		Includes: includes,
	}, true
}

// Parse uses a Parser without logging.
func Parse(path string) (changeset.FileMetadata, bool) {
	return Parser{}.Parse(path)
}

func readIncludes(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errIsDirectory
	}

	includes := []string{}
	reader := bufio.NewReader(file)
	for {
		line, readErr := reader.ReadString('\n')
		if target, ok := includeTarget(line); ok {
			includes = append(includes, target)
		}
		if readErr == io.EOF {
			return includes, nil
		}
		if readErr != nil {
			return nil, readErr
		}
	}
}

func includeTarget(line string) (string, bool) {
	match := includeDirective.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}
	if match[1] != "" {
		return match[1], true
	}
	return match[2], true
}
