package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"aiaa/pkg/types"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadFileYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "catalog.yaml", `models:
  - name: liver_annotation
    labels: [liver]
    type: annotation
    padding: 20
    roi: [128, 128, 128]
`)
	c, err := LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m, ok := c.Get("liver_annotation")
	if !ok || m.Padding != 20 || m.ROI != (types.ROI{128, 128, 128}) || m.Type != types.ModelTypeAnnotation {
		t.Fatalf("unexpected model: %+v ok=%v", m, ok)
	}
}

func TestLoadFileJSONBareArray(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "models.json", `[{"name":"a","labels":["spleen"],"type":"annotation","padding":10,"roi":[64,64,64]}]`)
	c, err := LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 model, got %d", c.Len())
	}
}

func TestSaveLoadRoundTripFormats(t *testing.T) {
	d := t.TempDir()
	src := New([]types.Model{{Name: "m", Labels: []string{"liver"}, Type: types.ModelTypeAnnotation, Padding: 15, ROI: types.ROI{96, 96, 96}}})
	for _, name := range []string{"c.yaml", "c.json", "c.toml"} {
		p := filepath.Join(d, "nested", name)
		if err := src.SaveFile(p); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		got, err := LoadFile(p)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		m, ok := got.Get("m")
		if !ok || m.Padding != 15 || m.ROI != (types.ROI{96, 96, 96}) || !m.HasLabel("liver") {
			t.Fatalf("%s: unexpected model %+v", name, m)
		}
	}
}

func TestLoadFileErrors(t *testing.T) {
	d := t.TempDir()
	if _, err := LoadFile(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	p := writeTempFile(t, d, "catalog.txt", "nope")
	if _, err := LoadFile(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if err := New(nil).SaveFile(filepath.Join(d, "x.ini")); err == nil {
		t.Fatalf("expected unsupported extension error on save")
	}
}
