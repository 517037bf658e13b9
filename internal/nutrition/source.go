package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/pageza/alchemorsel-engine/backend/internal/model"
)

// Source loads the raw nutrient reference records.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]model.NutrientRecord, error)
}

// DBSource reads the nutrient_records table.
type DBSource struct {
	db *gorm.DB
}

func NewDBSource(db *gorm.DB) *DBSource {
	return &DBSource{db: db}
}

func (s *DBSource) Name() string { return "database" }

func (s *DBSource) Load(ctx context.Context) ([]model.NutrientRecord, error) {
	var records []model.NutrientRecord
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load nutrient records: %w", err)
	}
	return records, nil
}

// FileSource reads a JSON or YAML list of records from disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(ctx context.Context) ([]model.NutrientRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read nutrient file %s: %w", s.path, err)
	}
	return DecodeRecords(s.path, data)
}

// ObjectGetter fetches an object body from blob storage.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// S3Source reads the reference table from an object store.
type S3Source struct {
	store ObjectGetter
	key   string
}

func NewS3Source(store ObjectGetter, key string) *S3Source {
	return &S3Source{store: store, key: key}
}

func (s *S3Source) Name() string { return "s3" }

func (s *S3Source) Load(ctx context.Context) ([]model.NutrientRecord, error) {
	data, err := s.store.GetObject(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nutrient table %s: %w", s.key, err)
	}
	return DecodeRecords(s.key, data)
}

type recordsDocument struct {
	Records []model.NutrientRecord `json:"records" yaml:"records"`
}

// DecodeRecords decodes either a bare list or a {"records": [...]} document.
// YAML is used for .yaml/.yml names, JSON otherwise.
func DecodeRecords(name string, data []byte) ([]model.NutrientRecord, error) {
	ext := strings.ToLower(filepath.Ext(name))
	trimmed := bytes.TrimSpace(data)

	var records []model.NutrientRecord
	switch ext {
	case ".yaml", ".yml":
		var doc recordsDocument
		if err := yaml.Unmarshal(trimmed, &doc); err == nil && doc.Records != nil {
			return doc.Records, nil
		}
		if err := yaml.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	default:
		if len(trimmed) > 0 && trimmed[0] == '{' {
			var doc recordsDocument
			if err := json.Unmarshal(trimmed, &doc); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", name, err)
			}
			return doc.Records, nil
		}
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	}
	return records, nil
}
