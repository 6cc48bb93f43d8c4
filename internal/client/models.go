package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"aiaa/pkg/types"
)

// ModelQuery narrows GET /v1/models on the server side.
type ModelQuery struct {
	Label string
	Type  types.ModelType
}

// Models fetches the full model catalog.
func (c *Client) Models(ctx context.Context) ([]types.Model, error) {
	return c.QueryModels(ctx, ModelQuery{})
}

// QueryModels fetches models matching q.
func (c *Client) QueryModels(ctx context.Context, q ModelQuery) ([]types.Model, error) {
	v := url.Values{}
	if q.Label != "" {
		v.Set("label", q.Label)
	}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	var models []types.Model
	err := c.call(ctx, http.MethodGet, "/v1/models", v, nil, "", func(resp *http.Response) error {
		var err error
		models, err = parseModels(resp)
		return err
	})
	return models, err
}

// Model fetches one model by name, matched exactly or case-insensitively.
// A server answering with a single model object (not a list) is naming the
// canonical entry for name, which is returned even when the names differ.
// A list without a matching entry means the model is absent.
func (c *Client) Model(ctx context.Context, name string) (types.Model, error) {
	if name == "" {
		return types.Model{}, newError(ErrInvalidArgs, nil, "model name is empty")
	}
	var (
		models []types.Model
		single bool
	)
	err := c.call(ctx, http.MethodGet, "/v1/models", url.Values{"model": {name}}, nil, "", func(resp *http.Response) error {
		var err error
		models, single, err = readModels(resp)
		return err
	})
	if err != nil {
		return types.Model{}, err
	}
	for _, m := range models {
		if m.Name == name {
			return m, nil
		}
	}
	for _, m := range models {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	if single && len(models) == 1 {
		return models[0], nil
	}
	return types.Model{}, &Error{ID: ErrServer, StatusCode: http.StatusNotFound, Description: "model not found: " + name}
}

// parseModels accepts a bare array, a {"models": [...]} envelope or a single object.
func parseModels(resp *http.Response) ([]types.Model, error) {
	models, _, err := readModels(resp)
	return models, err
}

// readModels is parseModels that also reports whether the body was a single
// model object.
func readModels(resp *http.Response) ([]types.Model, bool, error) {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, newError(ErrSystem, err, "read response: %v", err)
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, false, nil
	}
	switch b[0] {
	case '[':
		var models []types.Model
		if err := json.Unmarshal(b, &models); err != nil {
			return nil, false, newError(ErrResponseParse, err, "parse models: %v", err)
		}
		return models, false, nil
	case '{':
		var env types.ModelsResponse
		if err := json.Unmarshal(b, &env); err == nil && env.Models != nil {
			return env.Models, false, nil
		}
		var m types.Model
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, false, newError(ErrResponseParse, err, "parse model: %v", err)
		}
		if m.Name == "" {
			return nil, false, nil
		}
		return []types.Model{m}, true, nil
	default:
		return nil, false, newError(ErrResponseParse, nil, "parse models: unexpected body %q", truncate(string(b), 64))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
