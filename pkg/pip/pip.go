// Package pip reads index configuration from the user's global pip
// setup so custom package sources survive a migration.
package pip

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/uvmigrate/pkg/errors"
)

// GlobalExtraIndexes returns the extra-index-url entries from
// ~/.pip/pip.conf. A missing file yields an empty list, not an error.
func GlobalExtraIndexes() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFile, err, "unable to determine home directory")
	}
	return extraIndexes(filepath.Join(home, ".pip", "pip.conf"))
}

func extraIndexes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeFile, err, "failed to open %s", path)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "extra-index-url") {
			continue
		}
		if _, value, ok := strings.Cut(line, "="); ok {
			if url := strings.TrimSpace(value); url != "" {
				urls = append(urls, url)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFile, err, "failed to read %s", path)
	}
	return urls, nil
}
