// Package extensions discovers locally installed editor extensions.
// Discovery is a boundary concern: it only needs the (publisher, name,
// version) tuple per extension, not the full manifest.
package extensions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
	"github.com/extscan-toolkit/extscan-runner/pkg/scanner"
)

// manifest is the slice of package.json discovery cares about.
type manifest struct {
	Name      string `json:"name"`
	Publisher string `json:"publisher"`
	Version   string `json:"version"`
}

// Discover lists installed extensions under dir. Each extension lives in
// its own directory carrying a package.json; directories without a
// readable manifest fall back to the `publisher.name-version` directory
// naming convention, and are skipped with a log line if neither works.
func Discover(dir string, log observability.Logger) ([]scanner.Item, error) {
	if log == nil {
		log = observability.Nop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.ValidationError("failed to read extensions directory: "+dir, err)
	}

	var items []scanner.Item
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		item, ok := readManifest(filepath.Join(dir, entry.Name()))
		if !ok {
			item, ok = parseDirName(entry.Name())
		}
		if !ok {
			log.Warn("skipping unrecognized extension directory",
				observability.String("dir", entry.Name()))
			continue
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].ExtensionID() < items[j].ExtensionID()
	})
	return items, nil
}

func readManifest(dir string) (scanner.Item, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return scanner.Item{}, false
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return scanner.Item{}, false
	}
	if m.Publisher == "" || m.Name == "" || m.Version == "" {
		return scanner.Item{}, false
	}
	return scanner.Item{Publisher: m.Publisher, Name: m.Name, Version: m.Version}, true
}

// parseDirName recovers the tuple from a `publisher.name-version`
// directory name. Extension names may themselves contain dots and
// dashes, so split on the first dot and the last dash.
func parseDirName(name string) (scanner.Item, bool) {
	dot := strings.Index(name, ".")
	dash := strings.LastIndex(name, "-")
	if dot <= 0 || dash <= dot+1 || dash >= len(name)-1 {
		return scanner.Item{}, false
	}
	return scanner.Item{
		Publisher: name[:dot],
		Name:      name[dot+1 : dash],
		Version:   name[dash+1:],
	}, true
}
