package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"aiaa/internal/common/fsutil"
	"aiaa/pkg/types"
)

// fileDoc is the on-disk layout of a catalog file.
type fileDoc struct {
	Models []types.Model `json:"models" yaml:"models" toml:"models"`
}

// LoadFile reads a catalog saved as .yaml/.yml, .json or .toml.
// A JSON file may also hold a bare array, as returned by GET /v1/models.
func LoadFile(path string) (*Catalog, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var doc fileDoc
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &doc)
	case ".json":
		if trimmed := strings.TrimSpace(string(b)); strings.HasPrefix(trimmed, "[") {
			err = json.Unmarshal(b, &doc.Models)
		} else {
			err = json.Unmarshal(b, &doc)
		}
	case ".toml":
		err = toml.Unmarshal(b, &doc)
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(doc.Models), nil
}

// SaveFile writes the catalog in the format implied by the path extension.
func (c *Catalog) SaveFile(path string) error {
	doc := fileDoc{Models: c.Models()}
	var (
		b   []byte
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(doc)
	case ".json":
		b, err = json.MarshalIndent(doc, "", "  ")
	case ".toml":
		b, err = toml.Marshal(doc)
	default:
		return fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	f, err := fsutil.CreateFile(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
