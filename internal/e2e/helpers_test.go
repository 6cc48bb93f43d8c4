package e2e

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"aiaa/internal/catalog"
	"aiaa/internal/cli"
	"aiaa/internal/mockserver"
	"aiaa/pkg/types"
)

func liverCatalog() *catalog.Catalog {
	return catalog.New([]types.Model{
		{Name: "clara_deepgrow_liver", Labels: []string{"liver"}, Type: types.ModelTypeDeepgrow, Padding: 5, ROI: types.ROI{64, 64, 64}},
		{Name: "clara_ct_annotation_liver", Labels: []string{"liver"}, Type: types.ModelTypeAnnotation, Padding: 20, ROI: types.ROI{128, 128, 128}},
		{Name: "clara_ct_annotation_spleen", Labels: []string{"spleen"}, Type: types.ModelTypeAnnotation, Padding: 20, ROI: types.ROI{128, 128, 128}},
	})
}

func newMockServer(t *testing.T, c *catalog.Catalog) (*httptest.Server, *mockserver.MemoryService) {
	t.Helper()
	svc := mockserver.NewMemoryService(c)
	srv := httptest.NewServer(mockserver.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv, svc
}

// runCLI runs the aiaa command line with env isolated from the host.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	for _, k := range []string{"AIAA_SERVER", "AIAA_TIMEOUT", "AIAA_API_KEY", "AIAA_LOG_LEVEL", "AIAA_CONFIG", "AIAA_CATALOG"} {
		t.Setenv(k, "")
	}
	var out, errOut bytes.Buffer
	restore := cli.SetOutput(&out, &errOut)
	defer restore()
	code = cli.Run(context.Background(), args)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := imaging.Save(imaging.New(w, h, color.Gray{Y: 100}), p); err != nil {
		t.Fatalf("save png: %v", err)
	}
	return p
}

func openImage(t *testing.T, p string) image.Image {
	t.Helper()
	img, err := imaging.Open(p)
	if err != nil {
		t.Fatalf("open %s: %v", p, err)
	}
	return img
}
