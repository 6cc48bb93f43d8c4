package mockserver

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"aiaa/internal/catalog"
	"aiaa/internal/imageproc"
	"aiaa/pkg/types"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]types.Model{
		{Name: "clara_ct_annotation_liver", Labels: []string{"liver"}, Type: types.ModelTypeAnnotation, Padding: 20, ROI: types.ROI{128, 128, 128}},
		{Name: "clara_ct_seg_spleen", Labels: []string{"spleen"}, Type: types.ModelTypeSegmentation},
	})
}

func dextrBody(t *testing.T, params types.Dextr3DParams, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	pj, _ := json.Marshal(params)
	if err := mw.WriteField("params", string(pj)); err != nil {
		t.Fatal(err)
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "in.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(image)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	b, err := imageproc.EncodePNG(imaging.New(w, h, color.Gray{Y: 90}))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestModelsFilters(t *testing.T) {
	r := NewMux(NewMemoryService(testCatalog()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var all []types.Model
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("models len=%d", len(all))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models?label=LIVER&type=annotation", nil))
	var got []types.Model
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got) != 1 || got[0].Name != "clara_ct_annotation_liver" {
		t.Fatalf("filtered=%+v", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models?label=kidney", nil))
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("want empty array, got %q", w.Body.String())
	}
}

func TestModelsUnknownNameIs404(t *testing.T) {
	r := NewMux(NewMemoryService(testCatalog()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models?model=ghost", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != http.StatusNotFound {
		t.Fatalf("body=%s err=%v", w.Body.String(), err)
	}
}

func TestModelsBadType(t *testing.T) {
	r := NewMux(NewMemoryService(testCatalog()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models?type=bogus", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestDextr3DReturnsMask(t *testing.T) {
	svc := NewMemoryService(testCatalog())
	r := NewMux(svc)
	body, ct := dextrBody(t, types.Dextr3DParams{Points: "[[2,2,0],[5,6,0]]", Pad: 20, ROISize: types.ROI{128, 128, 128}}, pngBytes(t, 10, 10))
	req := httptest.NewRequest(http.MethodPost, "/v1/dextr3d?model=clara_ct_annotation_liver", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	mask, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := mask.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Fatalf("bounds=%v", b)
	}
	if r, _, _, _ := mask.At(3, 4).RGBA(); r == 0 {
		t.Fatalf("inside box should be white")
	}
	if r, _, _, _ := mask.At(8, 8).RGBA(); r != 0 {
		t.Fatalf("outside box should be black")
	}
	if svc.InferCalls() != 1 {
		t.Fatalf("calls=%d", svc.InferCalls())
	}
	name, params := svc.LastDextr3D()
	if name != "clara_ct_annotation_liver" || params.Pad != 20 {
		t.Fatalf("last=%s %+v", name, params)
	}
}

func TestModelNameLookupMatchesDextr3D(t *testing.T) {
	svc := NewMemoryService(testCatalog())
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models?model=CLARA_CT_ANNOTATION_LIVER", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("models status=%d", w.Code)
	}
	body, ct := dextrBody(t, types.Dextr3DParams{Points: "[[1,2,3]]"}, []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/dextr3d?model=CLARA_CT_ANNOTATION_LIVER", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("dextr3d status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestDextr3DEchoesNonRaster(t *testing.T) {
	r := NewMux(NewMemoryService(testCatalog()))
	body, ct := dextrBody(t, types.Dextr3DParams{Points: "[[1,2,3]]"}, []byte("volume-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/dextr3d?model=clara_ct_annotation_liver", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "volume-bytes" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestDextr3DErrors(t *testing.T) {
	r := NewMux(NewMemoryService(testCatalog()))
	cases := []struct {
		name   string
		query  string
		params types.Dextr3DParams
		image  []byte
		want   int
	}{
		{"missing model", "", types.Dextr3DParams{Points: "[[1,2,3]]"}, []byte("x"), http.StatusBadRequest},
		{"unknown model", "?model=ghost", types.Dextr3DParams{Points: "[[1,2,3]]"}, []byte("x"), http.StatusNotFound},
		{"bad points", "?model=clara_ct_annotation_liver", types.Dextr3DParams{Points: "[[1,2]]"}, []byte("x"), http.StatusBadRequest},
		{"no image", "?model=clara_ct_annotation_liver", types.Dextr3DParams{Points: "[[1,2,3]]"}, nil, http.StatusBadRequest},
		{"unknown session", "?model=clara_ct_annotation_liver&session_id=nope", types.Dextr3DParams{Points: "[[1,2,3]]"}, nil, http.StatusNotFound},
	}
	for _, c := range cases {
		body, ct := dextrBody(t, c.params, c.image)
		req := httptest.NewRequest(http.MethodPost, "/v1/dextr3d"+c.query, body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != c.want {
			t.Errorf("%s: status=%d want %d body=%s", c.name, w.Code, c.want, w.Body.String())
		}
	}
}

func TestDextr3DEmptyResult(t *testing.T) {
	svc := NewMemoryService(testCatalog())
	svc.EmptyResult = true
	r := NewMux(svc)
	body, ct := dextrBody(t, types.Dextr3DParams{Points: "[[1,2,3]]"}, []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/dextr3d?model=clara_ct_annotation_liver", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Fatalf("status=%d len=%d", w.Code, w.Body.Len())
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc := NewMemoryService(testCatalog())
	r := NewMux(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "vol.png")
	fw.Write(pngBytes(t, 8, 8))
	mw.Close()
	req := httptest.NewRequest(http.MethodPut, "/session/?expiry=60", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var s types.Session
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("json: %v", err)
	}
	if s.ID == "" || s.Expiry != 60 || s.ImageName != "vol.png" {
		t.Fatalf("session=%+v", s)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session/"+s.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}

	// inference against the session image needs no upload
	body, ct := dextrBody(t, types.Dextr3DParams{Points: "[[1,1,0]]"}, nil)
	req = httptest.NewRequest(http.MethodPost, "/v1/dextr3d?model=clara_ct_annotation_liver&session_id="+s.ID, body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("dextr3d status=%d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/session/"+s.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete status=%d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/session/"+s.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", w.Code)
	}
}

func TestSessionExpires(t *testing.T) {
	svc := NewMemoryService(testCatalog())
	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }
	s, err := svc.CreateSession([]byte("x"), "a.png", 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetSession(s.ID); err != nil {
		t.Fatalf("fresh session: %v", err)
	}
	now = now.Add(11 * time.Second)
	if _, err := svc.GetSession(s.ID); err == nil {
		t.Fatalf("expected expired session")
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	r := NewMux(NewMemoryService(testCatalog()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz status=%d body=%q", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "aiaa_mock_http_requests_total") {
		t.Fatalf("metrics body missing request counter")
	}
}

func TestCORSOptIn(t *testing.T) {
	ConfigureCORS("http://example.com", "", "")
	defer ConfigureCORS("", "", "")
	r := NewMux(NewMemoryService(testCatalog()))
	req := httptest.NewRequest(http.MethodOptions, "/v1/models", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}
