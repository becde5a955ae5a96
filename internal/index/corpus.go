// Package index implements the one-shot build pipeline: corpus loading,
// chunk hygiene, near-duplicate clustering, embedding, and artifact
// persistence. A build produces an immutable snapshot; a corpus change means
// a full rebuild, never an incremental patch.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognidex/cognidex/internal/chunk"
)

// corpusExtensions are the chunk file types the loader accepts. JSON is a
// YAML subset, so one decoder covers both.
var corpusExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// LoadCorpus reads authored chunks from a file or a directory tree. Each
// file holds a list of chunks or a single chunk. Files are processed in
// sorted path order so chunk order, and therefore the build, is
// deterministic. The returned hash identifies the corpus version.
func LoadCorpus(path string) ([]*chunk.Chunk, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat corpus path: %w", err)
	}

	var files []string
	if info.IsDir() {
		err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() != "." && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if corpusExtensions[strings.ToLower(filepath.Ext(p))] {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, "", fmt.Errorf("walk corpus directory: %w", err)
		}
	} else {
		files = []string{path}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, "", fmt.Errorf("no corpus files under %s", path)
	}

	var chunks []*chunk.Chunk
	hasher := sha256.New()
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, "", fmt.Errorf("read corpus file %s: %w", file, err)
		}

		parsed, err := parseChunks(content)
		if err != nil {
			return nil, "", fmt.Errorf("parse corpus file %s: %w", file, err)
		}
		chunks = append(chunks, parsed...)

		rel := filepath.Base(file)
		if r, err := filepath.Rel(path, file); err == nil {
			rel = r
		}
		hasher.Write([]byte(rel))
		hasher.Write([]byte(":"))
		hasher.Write(content)
		hasher.Write([]byte("\n"))
	}

	return chunks, hex.EncodeToString(hasher.Sum(nil)), nil
}

// parseChunks decodes a chunk list, falling back to a single chunk document.
func parseChunks(content []byte) ([]*chunk.Chunk, error) {
	var list []*chunk.Chunk
	if err := yaml.Unmarshal(content, &list); err == nil {
		return list, nil
	}

	var single chunk.Chunk
	if err := yaml.Unmarshal(content, &single); err != nil {
		return nil, err
	}
	return []*chunk.Chunk{&single}, nil
}
