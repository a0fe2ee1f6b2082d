package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pathmessages/pathmessages"
	"github.com/pathmessages/pathmessages/logging"
)

// IgnoreFileName is looked up in the ignore path and the repository.
const IgnoreFileName = ".pathmessagesignore"

// IgnoreSet silences findings listed in an ignore file.
type IgnoreSet map[string]struct{}

// Ignored reports whether f is listed by fingerprint or by type and file.
func (s IgnoreSet) Ignored(f pathmessages.Finding) bool {
	if len(s) == 0 {
		return false
	}
	if _, ok := s[f.Fingerprint()]; ok {
		return true
	}
	_, ok := s[f.Type+":"+f.File]
	return ok
}

// LoadIgnoreFile loads an ignore file. The file format supports:
// - Comments starting with #
// - Blank lines (ignored)
// - Fingerprints: type!file!message-hash#Lline
// - Rule and file pairs: type:file
func LoadIgnoreFile(path string) (IgnoreSet, error) {
	ignore := make(IgnoreSet)

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	replacer := strings.NewReplacer("\\", "/")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Normalize the path separators
		if s := strings.Split(line, "!"); len(s) == 3 && strings.Contains(s[2], "#L") {
			s[1] = replacer.Replace(s[1])
			ignore[strings.Join(s, "!")] = struct{}{}
			continue
		}
		if ruleType, file, ok := strings.Cut(line, ":"); ok && ruleType != "" && file != "" {
			ignore[ruleType+":"+replacer.Replace(file)] = struct{}{}
			continue
		}
		logging.Warn().Str("entry", line).Msg("Invalid ignore file entry")
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ignore, nil
}

// LoadIgnoreFiles loads ignore files from the ignore path and the
// repository directory and merges them. ignorePath may name a file or a
// directory holding one.
func LoadIgnoreFiles(ignorePath string, repoDir string) IgnoreSet {
	ignore := make(IgnoreSet)

	// Helper to try loading an ignore file
	tryLoad := func(path string) {
		if _, err := os.Stat(path); err == nil {
			logging.Debug().Str("path", path).Msg("loading ignore file")
			if loaded, err := LoadIgnoreFile(path); err == nil {
				for k, v := range loaded {
					ignore[k] = v
				}
			} else {
				logging.Warn().Err(err).Str("path", path).Msg("failed to load ignore file")
			}
		}
	}

	if ignorePath == "" {
		ignorePath = "."
	}
	if repoDir == "" {
		repoDir = "."
	}

	// Check explicit path if it's a file
	if info, err := os.Stat(ignorePath); err == nil && !info.IsDir() {
		tryLoad(ignorePath)
	} else {
		tryLoad(filepath.Join(ignorePath, IgnoreFileName))
	}

	if filepath.Clean(repoDir) != filepath.Clean(ignorePath) {
		tryLoad(filepath.Join(repoDir, IgnoreFileName))
	}

	return ignore
}
