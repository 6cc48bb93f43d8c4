package types

import (
	"fmt"
	"strconv"
	"strings"
)

// ModelType is the kind of inference a model performs.
type ModelType string

const (
	ModelTypeSegmentation   ModelType = "segmentation"
	ModelTypeAnnotation     ModelType = "annotation"
	ModelTypeClassification ModelType = "classification"
	ModelTypeDeepgrow       ModelType = "deepgrow"
	ModelTypePipeline       ModelType = "pipeline"
	ModelTypeOthers         ModelType = "others"
)

// ParseModelType maps a textual type to a ModelType. Empty input yields the
// empty type, which matches any model.
func ParseModelType(s string) (ModelType, error) {
	switch t := ModelType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", ModelTypeSegmentation, ModelTypeAnnotation, ModelTypeClassification,
		ModelTypeDeepgrow, ModelTypePipeline, ModelTypeOthers:
		return t, nil
	default:
		return "", fmt.Errorf("unknown model type: %q", s)
	}
}

// Model describes a named inference model served by the annotation server.
type Model struct {
	// Unique model name used to address the model on the server.
	// example: clara_pt_spleen_ct_annotation
	Name string `json:"name" yaml:"name" toml:"name"`
	// Organ/structure labels the model was trained for.
	// example: ["spleen"]
	Labels []string `json:"labels" yaml:"labels" toml:"labels"`
	// example: 3D annotation model for spleen
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	// example: 1
	Version string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	// example: annotation
	Type ModelType `json:"type" yaml:"type" toml:"type"`
	// Padding (in voxels) added around the point set before inference.
	// example: 20
	Padding float64 `json:"padding" yaml:"padding" toml:"padding"`
	// Region of interest the input is resampled to.
	// example: [128,128,128]
	ROI ROI `json:"roi" yaml:"roi" toml:"roi"`
	// Gaussian sigma applied to point heat maps.
	// example: 3
	Sigma float64 `json:"sigma,omitempty" yaml:"sigma,omitempty" toml:"sigma,omitempty"`
}

// HasLabel reports whether the model lists label, ignoring case.
func (m Model) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// ROI is a 3D region-of-interest size.
type ROI [3]int

// ParseROI parses "XsepYsepZ", e.g. "128x128x128" with sep 'x'.
func ParseROI(s string, sep byte) (ROI, error) {
	var roi ROI
	parts := strings.Split(strings.TrimSpace(s), string(sep))
	if len(parts) != 3 {
		return roi, fmt.Errorf("invalid roi %q: expected 3 components separated by %q", s, sep)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return roi, fmt.Errorf("invalid roi %q: %w", s, err)
		}
		roi[i] = n
	}
	return roi, nil
}

func (r ROI) String() string { return fmt.Sprintf("%dx%dx%d", r[0], r[1], r[2]) }
