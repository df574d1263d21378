package curriculum

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"
)

// ErrCatalogNotFound is returned by Find when no catalog resembles the name.
var ErrCatalogNotFound = errors.New("catalog not found")

// maxTypoDistance bounds the edit distance accepted by Find.
const maxTypoDistance = 2

// Loader loads and caches tutorial catalogs from a filesystem.
type Loader struct {
	catalogs map[string]*Catalog
	mu       sync.RWMutex
}

// NewLoader loads every catalog found in fsys.
func NewLoader(fsys fs.FS) (*Loader, error) {
	l := &Loader{
		catalogs: make(map[string]*Catalog),
	}

	if err := l.loadAll(fsys); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "catalogs", len(l.catalogs))
	return l, nil
}

// NewLoaderFromDir loads every catalog below dir.
func NewLoaderFromDir(dir string) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("loading curriculum: %s is not a directory", dir)
	}
	return NewLoader(os.DirFS(dir))
}

// Catalog returns a catalog by ID.
func (l *Loader) Catalog(id string) (*Catalog, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.catalogs[id]
	return c, ok
}

// Catalogs returns all loaded catalogs ordered by ID.
func (l *Loader) Catalogs() []*Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Catalog, 0, len(l.catalogs))
	for _, c := range l.catalogs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Find resolves a learner-typed tutorial name ("python", "C#", "pyhton")
// to a catalog. Exact ID or display-name matches win, then the closest
// fuzzy match, then the closest name within a small edit distance.
func (l *Loader) Find(name string) (*Catalog, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrCatalogNotFound
	}

	catalogs := l.Catalogs()
	var targets []string
	var owners []*Catalog
	for _, c := range catalogs {
		if name == c.ID || name == strings.ToLower(c.Name) {
			return c, nil
		}
		targets = append(targets, c.ID, strings.ToLower(c.Name))
		owners = append(owners, c, c)
	}

	ranks := fuzzy.RankFindFold(name, targets)
	if len(ranks) > 0 {
		sort.Stable(ranks)
		return owners[ranks[0].OriginalIndex], nil
	}

	best, bestDist := -1, maxTypoDistance+1
	for i, t := range targets {
		if d := fuzzy.LevenshteinDistance(name, t); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		return owners[best], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrCatalogNotFound, name)
}

func (l *Loader) loadAll(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".yaml", ".yml":
			return l.loadCatalog(fsys, p)
		}
		return nil
	})
}

func (l *Loader) loadCatalog(fsys fs.FS, p string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return err
	}

	var partial struct {
		ID string `yaml:"id"`
	}
	if err := yaml.Unmarshal(data, &partial); err != nil || partial.ID == "" {
		return nil // Not a catalog file
	}

	cat, err := Parse(data)
	if err != nil {
		slog.Warn("skipping invalid catalog", "path", p, "error", err)
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.catalogs[cat.ID]; dup {
		slog.Warn("skipping duplicate catalog", "path", p, "id", cat.ID)
		return nil
	}
	l.catalogs[cat.ID] = cat
	return nil
}
