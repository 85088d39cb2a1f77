package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// ErrInvalidDocument is returned when a document fails schema validation.
var ErrInvalidDocument = errors.New("document does not match schema")

// ReportStore persists the manifest and report documents.
type ReportStore interface {
	LoadManifest(ctx context.Context, path m.Path) (m.Manifest, error)
	SaveManifest(ctx context.Context, path m.Path, manifest m.Manifest) error
	LoadReport(ctx context.Context, path m.Path) (m.Report, error)
	SaveReport(ctx context.Context, path m.Path, report m.Report) error
}

// LocalReportStore reads and writes JSON documents through a SourceFSAdapter.
type LocalReportStore struct {
	fs SourceFSAdapter
}

// NewLocalReportStore constructs a LocalReportStore.
func NewLocalReportStore(fs SourceFSAdapter) *LocalReportStore {
	return &LocalReportStore{fs: fs}
}

var (
	schemaOnce     sync.Once
	manifestSchema *jsonschema.Schema
	reportSchema   *jsonschema.Schema
	errSchema      error
)

func compileSchemas() error {
	schemaOnce.Do(func() {
		manifestSchema, errSchema = compileSchema("results.schema.json", ManifestSchema)
		if errSchema != nil {
			return
		}

		reportSchema, errSchema = compileSchema("evaluation-tiered.schema.json", ReportSchema)
	})

	return errSchema
}

func compileSchema(name, text string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}

	return compiler.Compile(name)
}

// ValidateManifest checks raw results.json content against ManifestSchema.
func ValidateManifest(raw []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	return validate(manifestSchema, raw)
}

// ValidateReport checks raw evaluation_tiered.json content against ReportSchema.
func ValidateReport(raw []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	return validate(reportSchema, raw)
}

func validate(schema *jsonschema.Schema, raw []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return nil
}

// LoadManifest reads and validates a results.json manifest.
func (s *LocalReportStore) LoadManifest(ctx context.Context, path m.Path) (m.Manifest, error) {
	raw, err := s.fs.ReadFile(ctx, path)
	if err != nil {
		return m.Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}

	if err := ValidateManifest(raw); err != nil {
		slog.Error("invalid manifest", "path", path, "error", err)
		return m.Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}

	var manifest m.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return m.Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	return manifest, nil
}

// SaveManifest writes a manifest as indented JSON.
func (s *LocalReportStore) SaveManifest(ctx context.Context, path m.Path, manifest m.Manifest) error {
	return s.writeJSON(ctx, path, manifest)
}

// LoadReport reads and validates an evaluation_tiered.json report.
func (s *LocalReportStore) LoadReport(ctx context.Context, path m.Path) (m.Report, error) {
	raw, err := s.fs.ReadFile(ctx, path)
	if err != nil {
		return m.Report{}, fmt.Errorf("read report %s: %w", path, err)
	}

	if err := ValidateReport(raw); err != nil {
		return m.Report{}, fmt.Errorf("report %s: %w", path, err)
	}

	var report m.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return m.Report{}, fmt.Errorf("decode report %s: %w", path, err)
	}

	return report, nil
}

// SaveReport writes a report as indented JSON.
func (s *LocalReportStore) SaveReport(ctx context.Context, path m.Path, report m.Report) error {
	return s.writeJSON(ctx, path, report)
}

func (s *LocalReportStore) writeJSON(ctx context.Context, path m.Path, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	data = append(data, '\n')

	if err := s.fs.WriteFile(ctx, path, data, os.FileMode(0o644)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
