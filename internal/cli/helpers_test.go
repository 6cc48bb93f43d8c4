package cli

import (
	"bytes"
	"context"
	"testing"

	"aiaa/internal/client"
	"aiaa/pkg/types"
)

// fakeAPI records calls and answers from canned data.
type fakeAPI struct {
	models    []types.Model
	modelErr  error
	status    int
	inferErr  error
	infers    []types.Dextr3DRequest
	modelsHit int
	sessions  map[string]types.Session
	closed    []string
}

func (f *fakeAPI) Models(ctx context.Context) ([]types.Model, error) {
	f.modelsHit++
	return f.models, f.modelErr
}

func (f *fakeAPI) Model(ctx context.Context, name string) (types.Model, error) {
	f.modelsHit++
	if f.modelErr != nil {
		return types.Model{}, f.modelErr
	}
	for _, m := range f.models {
		if m.Name == name {
			return m, nil
		}
	}
	return types.Model{}, &client.Error{ID: client.ErrServer, StatusCode: 404, Description: "model not found: " + name}
}

func (f *fakeAPI) Dextr3D(ctx context.Context, req types.Dextr3DRequest) (int, error) {
	f.infers = append(f.infers, req)
	return f.status, f.inferErr
}

func (f *fakeAPI) QueryModels(ctx context.Context, q client.ModelQuery) ([]types.Model, error) {
	f.modelsHit++
	return f.models, f.modelErr
}

func (f *fakeAPI) CreateSession(ctx context.Context, imagePath string, expirySeconds int) (types.Session, error) {
	s := types.Session{ID: "sess-1", Expiry: expirySeconds, ImageName: imagePath}
	if f.sessions == nil {
		f.sessions = map[string]types.Session{}
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeAPI) GetSession(ctx context.Context, id string) (types.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return types.Session{}, &client.Error{ID: client.ErrServer, StatusCode: 404, Description: "session not found: " + id}
}

func (f *fakeAPI) CloseSession(ctx context.Context, id string) error {
	f.closed = append(f.closed, id)
	return nil
}

// withCLIStubs installs api as the client factory and captures output.
// The returned cleanup restores the originals.
func withCLIStubs(t *testing.T, api *fakeAPI) (out, errOut *bytes.Buffer, servers *[]string, cleanup func()) {
	t.Helper()
	for _, k := range []string{"AIAA_SERVER", "AIAA_TIMEOUT", "AIAA_API_KEY", "AIAA_LOG_LEVEL", "AIAA_CONFIG", "AIAA_CATALOG"} {
		t.Setenv(k, "")
	}
	origNew, origOut, origErr := fnNewClient, stdout, stderr
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	stdout, stderr = out, errOut
	var seen []string
	fnNewClient = func(server string, opts client.Options) (API, error) {
		seen = append(seen, server)
		return api, nil
	}
	return out, errOut, &seen, func() {
		fnNewClient, stdout, stderr = origNew, origOut, origErr
	}
}

func liverModel() types.Model {
	return types.Model{
		Name:    "clara_ct_annotation_liver",
		Labels:  []string{"liver"},
		Type:    types.ModelTypeAnnotation,
		Padding: 35,
		ROI:     types.ROI{96, 96, 96},
	}
}
