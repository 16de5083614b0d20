// Package store persists finished analyses.
package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// NewReportStore opens the backend at path. For sqlite, path is the
// database file (".db" is enforced); for json, it is a directory.
func NewReportStore(backend, path string) (core.ReportStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "store path not configured")
	}
	switch strings.ToLower(backend) {
	case "", BackendSQLite:
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteReportStore(path)
	case BackendJSON:
		return NewJSONReportStore(path)
	default:
		return nil, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("unknown store backend %q (valid: sqlite, json)", backend))
	}
}

var (
	_ core.ReportStore = (*SQLiteReportStore)(nil)
	_ core.ReportStore = (*JSONReportStore)(nil)
)
