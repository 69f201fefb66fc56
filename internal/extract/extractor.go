// Package extract turns workbooks into raw tagged tables. The pipeline
// depends only on the Extractor interface; the excelize-backed XLSX
// implementation lives alongside it.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gridcraft/xl2dd/internal/tables"
)

// Extractor produces the raw tables of one workbook, in sheet then
// top-to-bottom order.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]tables.RawTable, error)
}

// ListWorkbooks resolves the workbook paths of a job. When explicit
// names are given they are taken in that order (overlay order matters);
// otherwise every .xlsx file in dir is used, sorted by name.
func ListWorkbooks(dir string, names []string) ([]string, error) {
	if len(names) > 0 {
		paths := make([]string, len(names))
		for i, n := range names {
			p := n
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, n)
			}
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("workbook %s: %w", n, err)
			}
			paths[i] = p
		}
		return paths, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading workbook dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".xlsx") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .xlsx workbooks in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}
