package types

// Dextr3DParams is the JSON "params" part of a DEXTR3D request.
type Dextr3DParams struct {
	// Point set in bracketed-array form.
	// example: [[70,172,86],[105,161,180]]
	Points string `json:"points"`
	// example: 20
	Pad float64 `json:"pad"`
	// example: [128,128,128]
	ROISize ROI `json:"roi_size"`
	// Set when the server already holds the image for this session.
	SessionID string `json:"session_id,omitempty"`
	// True when the client already cropped the image around the points.
	PreProcessed bool `json:"pre_processed,omitempty"`
}

// Dextr3DRequest is a single point-based annotation call as issued by the client.
type Dextr3DRequest struct {
	Model      Model
	Points     PointSet
	ImagePath  string
	OutputPath string
	PreProcess bool
	SessionID  string
}

// ModelsResponse wraps the list of models returned by GET /v1/models when the
// server uses the enveloped form.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// Session is a server-held image that later calls may reference by id.
type Session struct {
	// example: 5a2b0d4e-9e55-4c4b-9d8b-0d6f3f6c9e0e
	ID string `json:"session_id" yaml:"session_id"`
	// Seconds until the server discards the session.
	// example: 3600
	Expiry int `json:"expiry" yaml:"expiry"`
	// Original image name as uploaded.
	ImageName string `json:"image_name,omitempty" yaml:"image_name,omitempty"`
	// example: 1700000000
	CreatedUnix int64 `json:"created_unix,omitempty" yaml:"created_unix,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found
	Error string `json:"error" example:"model not found"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
