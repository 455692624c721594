package moderation

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// LoadWords reads a censor dictionary. name is either a newline-separated file
// or a directory whose *.txt files are merged (one file per language).
// Blank lines and lines starting with '#' are skipped; duplicates are removed.
func LoadWords(fsys fs.FS, name string) ([]string, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("unable to stat censor dictionary %s: %w", name, err)
	}

	files := []string{name}
	if info.IsDir() {
		entries, err := fs.ReadDir(fsys, name)
		if err != nil {
			return nil, err
		}
		files = files[:0]
		for _, entry := range entries {
			if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
				continue
			}
			files = append(files, path.Join(name, entry.Name()))
		}
	}

	unique := make(map[string]struct{})
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		// Scanner handles \n and \r\n alike
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			unique[strings.ToLower(line)] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", file, err)
		}
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	sort.Strings(words)
	return words, nil
}
