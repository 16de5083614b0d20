package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// validID restricts report IDs to names that are safe as file names.
var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// JSONReportStore implements core.ReportStore with one JSON file per
// report under a directory.
type JSONReportStore struct {
	dir string
	mu  sync.RWMutex
}

// NewJSONReportStore creates a store rooted at dir.
func NewJSONReportStore(dir string) (*JSONReportStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &JSONReportStore{dir: dir}, nil
}

// reportEnvelope wraps a report with an integrity checksum.
type reportEnvelope struct {
	Version  int                `json:"version"`
	Checksum string             `json:"checksum"`
	Report   *core.StoredReport `json:"report"`
}

// Dir returns the store directory.
func (s *JSONReportStore) Dir() string {
	return s.dir
}

func (s *JSONReportStore) pathFor(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("invalid report id %q", id))
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Save implements core.ReportStore.
func (s *JSONReportStore) Save(_ context.Context, r *core.StoredReport) error {
	if r == nil || r.Report == nil {
		return core.ErrValidation(core.CodeInvalidConfig, "stored report needs a report")
	}
	path, err := s.pathFor(r.ID)
	if err != nil {
		return err
	}

	checksum, err := checksumOf(r)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(reportEnvelope{Version: 1, Checksum: checksum, Report: r}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return core.ErrState(core.CodeStoreFailed, "writing report file").WithCause(err)
	}
	return nil
}

// Get implements core.ReportStore.
func (s *JSONReportStore) Get(_ context.Context, id string) (*core.StoredReport, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return nil, reportNotFound(id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadReport(path, id)
}

func loadReport(path, id string) (*core.StoredReport, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, reportNotFound(id)
	}
	if err != nil {
		return nil, core.ErrState(core.CodeStoreFailed, "reading report file").WithCause(err)
	}

	var env reportEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, core.ErrState("REPORT_CORRUPTED", "report file is not valid JSON").WithCause(err).WithDetail("path", path)
	}
	if env.Report == nil {
		return nil, core.ErrState("REPORT_CORRUPTED", "report file has no report").WithDetail("path", path)
	}
	checksum, err := checksumOf(env.Report)
	if err != nil {
		return nil, err
	}
	if checksum != env.Checksum {
		return nil, core.ErrState("REPORT_CORRUPTED", "checksum mismatch").WithDetail("path", path)
	}
	return env.Report, nil
}

// List implements core.ReportStore. Unreadable files are skipped.
func (s *JSONReportStore) List(_ context.Context, limit int) ([]core.ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, core.ErrState(core.CodeStoreFailed, "listing reports").WithCause(err)
	}

	out := []core.ReportSummary{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		r, err := loadReport(filepath.Join(s.dir, name), id)
		if err != nil {
			continue
		}
		out = append(out, r.Summary())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete implements core.ReportStore.
func (s *JSONReportStore) Delete(_ context.Context, id string) error {
	path, err := s.pathFor(id)
	if err != nil {
		return reportNotFound(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return reportNotFound(id)
		}
		return core.ErrState(core.CodeStoreFailed, "deleting report").WithCause(err)
	}
	return nil
}

// Close implements core.ReportStore.
func (s *JSONReportStore) Close() error {
	return nil
}

func checksumOf(r *core.StoredReport) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshaling report for checksum: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
