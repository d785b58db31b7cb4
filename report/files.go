package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/creachadair/atomicfile"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// Encode serializes the whole report.
func (f Format) Encode(r *Report) ([]byte, error) {
	switch f {
	case JSON:
		return json.MarshalIndent(r, "", "  ")
	case YAML:
		return yaml.Marshal(r)
	}
	return nil, fmt.Errorf("unknown export format %q", string(f))
}

// Path returns where a file export of the run is written.
func Path(dir, runID, ext string) string {
	return filepath.Join(dir, runID+"."+ext)
}

// FileSink exports the report into Dir as <runID>.json or <runID>.yaml.
type FileSink struct {
	Dir    string
	Format Format
}

func (s *FileSink) Name() string {
	return string(s.Format)
}

func (s *FileSink) Write(_ context.Context, r *Report) error {
	data, err := s.Format.Encode(r)
	if err != nil {
		return err
	}
	return writeFile(Path(s.Dir, r.RunID, string(s.Format)), data)
}

// writeFile replaces path atomically, so readers never observe a partial export.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if _, err := atomicfile.WriteAll(path, bytes.NewReader(data), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
