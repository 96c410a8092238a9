// Package mappings holds the three rule tables applied to every scan result:
// issue rows and crawl summary rows for the warehouse, and the response shape
// returned to the caller.
//
// Defaults are embedded in the binary. A directory of overrides may replace
// any of them with a file named after the table (bq_issues, bq_crawls or
// crawls) and a .json, .yaml or .yml extension.
package mappings

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ggoodman/a11y-warehouse/jsonmap"
)

//go:embed defaults/*.json
var defaults embed.FS

// Table file names, without extension.
const (
	IssuesTable   = "bq_issues"
	CrawlsTable   = "bq_crawls"
	ResponseTable = "crawls"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Set is one consistent generation of compiled rule tables.
type Set struct {
	Issues   *jsonmap.RuleTable
	Crawls   *jsonmap.RuleTable
	Response *jsonmap.RuleTable
}

// Source hands out the current Set. Implementations must be safe for
// concurrent use.
type Source interface {
	Current() *Set
}

// Static is a Source that never changes.
type Static struct{ Set *Set }

func (s Static) Current() *Set { return s.Set }

// Default compiles the embedded tables. The embedded files are part of the
// build, so a failure here is a programming error.
func Default(opts ...jsonmap.Option) *Set {
	set, err := Load("", opts...)
	if err != nil {
		panic(err)
	}
	return set
}

// Load compiles all three tables, preferring overrides found in dir. An
// empty dir uses the embedded defaults only.
func Load(dir string, opts ...jsonmap.Option) (*Set, error) {
	issues, err := load(dir, IssuesTable, opts)
	if err != nil {
		return nil, err
	}
	crawls, err := load(dir, CrawlsTable, opts)
	if err != nil {
		return nil, err
	}
	resp, err := load(dir, ResponseTable, opts)
	if err != nil {
		return nil, err
	}
	return &Set{Issues: issues, Crawls: crawls, Response: resp}, nil
}

func load(dir, name string, opts []jsonmap.Option) (*jsonmap.RuleTable, error) {
	data, src, err := read(dir, name)
	if err != nil {
		return nil, err
	}
	table, err := jsonmap.CompileSpec(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("mappings: %s: %w", src, err)
	}
	return table, nil
}

// read returns the override for name if one exists, else the embedded default.
func read(dir, name string) ([]byte, string, error) {
	if dir != "" {
		for _, ext := range extensions {
			p := filepath.Join(dir, name+ext)
			data, err := os.ReadFile(p)
			if err == nil {
				return data, p, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, p, fmt.Errorf("mappings: read %s: %w", p, err)
			}
		}
	}

	p := "defaults/" + name + ".json"
	data, err := defaults.ReadFile(p)
	if err != nil {
		return nil, p, fmt.Errorf("mappings: read embedded %s: %w", p, err)
	}
	return data, p, nil
}

// isTableFile reports whether base names one of the override files.
func isTableFile(base string) bool {
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	if name != IssuesTable && name != CrawlsTable && name != ResponseTable {
		return false
	}
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
