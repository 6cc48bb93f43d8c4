package request

import (
	"context"
	"strings"

	"aiaa/internal/catalog"
	"aiaa/internal/client"
	"aiaa/pkg/types"
)

// ModelSource is the part of the inference client used to resolve models.
type ModelSource interface {
	Models(ctx context.Context) ([]types.Model, error)
	Model(ctx context.Context, name string) (types.Model, error)
}

// Validate checks option presence and combinations. It never touches the
// network and reports the first problem found.
func Validate(o Options) error {
	switch {
	case o.Label == "" && o.Model == "":
		return usageError("Either Label or Model is required")
	case strings.TrimSpace(o.Points) == "":
		return usageError("Pointset is empty")
	case o.Image == "" && o.Session == "":
		return usageError("Input Image file is missing (Either session-id or input image should be provided)")
	case o.Crop && o.Image == "":
		return usageError("Input Image file is missing when (preProcess = True)")
	case o.Output == "":
		return usageError("Output Image file is missing")
	}
	return nil
}

// ParsePointSet parses the -points value.
func ParsePointSet(s string) (types.PointSet, error) {
	ps, err := types.ParsePointSet(s)
	if err != nil {
		return types.PointSet{}, parseError(err)
	}
	return ps, nil
}

// ResolveModel fetches the model named name, or, when name is empty, the
// catalog's best point-annotation match for label.
func ResolveModel(ctx context.Context, src ModelSource, name, label string) (types.Model, error) {
	if name == "" && label == "" {
		return types.Model{}, usageError("Either Label or Model is required")
	}
	if name != "" {
		m, err := src.Model(ctx, name)
		if err != nil {
			if client.IsNotFound(err) {
				return types.Model{}, notFoundError(name, label, err)
			}
			return types.Model{}, transportError(err)
		}
		if m.Name == "" {
			return types.Model{}, notFoundError(name, label, nil)
		}
		return m, nil
	}
	models, err := src.Models(ctx)
	if err != nil {
		return types.Model{}, transportError(err)
	}
	m, ok := catalog.New(models).BestMatch(label, types.ModelTypeAnnotation)
	if !ok {
		return types.Model{}, notFoundError(name, label, nil)
	}
	return m, nil
}

// ApplyOverrides returns a copy of m carrying the user's explicit choices:
// the requested model name, and padding/ROI when those flags were given.
// Values are not range-checked.
func ApplyOverrides(m types.Model, o Options) (types.Model, error) {
	out := m
	out.Labels = append([]string(nil), m.Labels...)
	if o.Model != "" {
		out.Name = o.Model
	}
	if o.PadSet {
		out.Padding = o.Pad
	}
	if o.ROISet {
		roi, err := types.ParseROI(o.ROI, 'x')
		if err != nil {
			return types.Model{}, parseError(err)
		}
		out.ROI = roi
	}
	return out, nil
}

// Build validates o, parses its point set and ROI, resolves the model and
// applies overrides. Local problems are reported before any call to src.
func Build(ctx context.Context, src ModelSource, o Options) (RequestConfig, error) {
	if err := Validate(o); err != nil {
		return RequestConfig{}, err
	}
	points, err := ParsePointSet(o.Points)
	if err != nil {
		return RequestConfig{}, err
	}
	if o.ROISet {
		if _, err := types.ParseROI(o.ROI, 'x'); err != nil {
			return RequestConfig{}, parseError(err)
		}
	}
	m, err := ResolveModel(ctx, src, o.Model, o.Label)
	if err != nil {
		return RequestConfig{}, err
	}
	m, err = ApplyOverrides(m, o)
	if err != nil {
		return RequestConfig{}, err
	}
	return RequestConfig{
		Model:      m,
		Points:     points,
		ImagePath:  o.Image,
		SessionID:  o.Session,
		OutputPath: o.Output,
		PreProcess: o.Crop,
		Timeout:    o.Timeout,
	}, nil
}
