// Package request turns command-line input into a single validated
// point-based annotation request and dispatches it.
package request

import (
	"time"

	"aiaa/pkg/types"
)

// Defaults for options the user may omit.
const (
	DefaultServer  = "http://0.0.0.0:5000"
	DefaultPad     = 20.0
	DefaultROI     = "128x128x128"
	DefaultTimeout = 60 * time.Second
)

// Options is the parsed command line of one DEXTR3D invocation.
type Options struct {
	Server string
	Label  string
	Model  string
	Points string

	// Pad and ROI replace the model's defaults only when PadSet/ROISet are true.
	Pad    float64
	PadSet bool
	ROI    string
	ROISet bool

	Image   string
	Session string
	Crop    bool
	Output  string

	Timeout      time.Duration
	PrintLatency bool
}

// DefaultOptions returns Options with every default applied.
func DefaultOptions() Options {
	return Options{
		Server:  DefaultServer,
		Pad:     DefaultPad,
		ROI:     DefaultROI,
		Timeout: DefaultTimeout,
	}
}

// RequestConfig is the fully resolved input of one inference call.
type RequestConfig struct {
	Model      types.Model
	Points     types.PointSet
	ImagePath  string
	SessionID  string
	OutputPath string
	PreProcess bool
	Timeout    time.Duration
}

// Dextr3DRequest converts the config into the client call payload.
func (c RequestConfig) Dextr3DRequest() types.Dextr3DRequest {
	return types.Dextr3DRequest{
		Model:      c.Model,
		Points:     c.Points,
		ImagePath:  c.ImagePath,
		OutputPath: c.OutputPath,
		PreProcess: c.PreProcess,
		SessionID:  c.SessionID,
	}
}
