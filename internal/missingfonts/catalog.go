package missingfonts

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

//go:embed fonts.json
var embeddedCatalog []byte

// Remedy describes how to obtain a font for one script. Every field is
// optional.
type Remedy struct {
	// Packages maps a package-kit identifier ("debian", "fedora") to the
	// package name(s) to install; several names are space separated.
	Packages map[string]string
	// Download is a file name relative to the font server.
	Download string
	// B3Sum is the expected BLAKE3 digest of Download, hex encoded.
	B3Sum string
}

// PackageNames collects the packages of every configured identifier, in the
// order of managers.
func (r Remedy) PackageNames(managers []string) []string {
	var names []string
	for _, m := range managers {
		names = append(names, strings.Fields(r.Packages[m])...)
	}
	return names
}

// RemedyCatalog looks up the remedy known for a script.
type RemedyCatalog interface {
	Lookup(script string) (Remedy, bool)
}

// Catalog is the font remedy catalog. It is read once, on first lookup, from
// Path (plain JSON or zstd compressed .zst) or from the embedded fonts.json.
// A catalog that fails to load behaves as an empty one.
type Catalog struct {
	Path string

	once    sync.Once
	entries map[string]Remedy
	err     error
}

// NewCatalog returns a catalog reading path, or the embedded data when path
// is empty.
func NewCatalog(path string) *Catalog {
	return &Catalog{Path: path}
}

func (c *Catalog) load() {
	data := embeddedCatalog
	if c.Path != "" {
		data, c.err = readCatalogFile(c.Path)
	}
	if c.err == nil {
		c.entries, c.err = parseCatalog(data)
	}
	if c.err != nil {
		colArrow.Print("-> ")
		colError.Printf("Failed to load font data: %v\n", c.err)
		c.entries = map[string]Remedy{}
		return
	}
	debugf("Loaded font data for %d scripts\n", len(c.entries))
}

// Lookup returns the remedy for script.
func (c *Catalog) Lookup(script string) (Remedy, bool) {
	c.once.Do(c.load)
	r, ok := c.entries[script]
	return r, ok
}

// Err reports the load error, if any. It forces the load.
func (c *Catalog) Err() error {
	c.once.Do(c.load)
	return c.err
}

// Len returns the number of scripts in the catalog.
func (c *Catalog) Len() int {
	c.once.Do(c.load)
	return len(c.entries)
}

func readCatalogFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return io.ReadAll(f)
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader for %s: %w", path, err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// parseCatalog decodes {"Grek": {"fedora": "pkg", "download": "file"}}.
func parseCatalog(data []byte) (map[string]Remedy, error) {
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid font data: %w", err)
	}
	if raw == nil {
		return nil, errors.New("invalid font data: empty document")
	}

	entries := make(map[string]Remedy, len(raw))
	for script, fields := range raw {
		r := Remedy{Packages: make(map[string]string)}
		for k, v := range fields {
			switch k {
			case "download":
				r.Download = v
			case "b3sum":
				r.B3Sum = strings.ToLower(v)
			default:
				r.Packages[k] = v
			}
		}
		entries[script] = r
	}
	return entries, nil
}
