package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"aiaa/internal/common/fsutil"
	"aiaa/internal/imageproc"
	"aiaa/pkg/types"
)

// Inference status codes returned by Dextr3D.
const (
	StatusSuccess  = 0
	StatusNoResult = 1
)

// Dextr3D runs one point-based annotation call and writes the result image to
// req.OutputPath. It returns StatusNoResult when the server answered without
// an image; all other failures are returned as *Error.
func (c *Client) Dextr3D(ctx context.Context, req types.Dextr3DRequest) (int, error) {
	if err := checkDextr3D(req); err != nil {
		return -1, err
	}
	params := types.Dextr3DParams{
		Points:    req.Points.JSON(),
		Pad:       req.Model.Padding,
		ROISize:   req.Model.ROI,
		SessionID: req.SessionID,
	}

	var (
		imageName string
		imageData []byte
		crop      imageproc.Crop
	)
	switch {
	case req.PreProcess:
		img, err := imageproc.Open(req.ImagePath)
		if err != nil {
			return -1, newError(ErrImageProcessing, err, "%v", err)
		}
		cropped, pts, cr, err := imageproc.PreProcess(img, req.Points, req.Model.Padding, req.Model.ROI)
		if err != nil {
			return -1, newError(ErrImageProcessing, err, "pre-process %s: %v", req.ImagePath, err)
		}
		if imageData, err = imageproc.EncodePNG(cropped); err != nil {
			return -1, newError(ErrImageProcessing, err, "encode cropped image: %v", err)
		}
		imageName = "cropped.png"
		params.Points = pts.JSON()
		params.PreProcessed = true
		crop = cr
	case req.SessionID == "":
		p, err := fsutil.ExpandHome(req.ImagePath)
		if err != nil {
			return -1, newError(ErrSystem, err, "%v", err)
		}
		if imageData, err = os.ReadFile(p); err != nil {
			return -1, newError(ErrSystem, err, "read image: %v", err)
		}
		imageName = filepath.Base(p)
	}

	body, contentType, err := encodeDextr3D(params, imageName, imageData)
	if err != nil {
		return -1, newError(ErrSystem, err, "encode request: %v", err)
	}
	q := url.Values{"model": {req.Model.Name}}
	if req.SessionID != "" {
		q.Set("session_id", req.SessionID)
	}

	var result []byte
	err = c.call(ctx, http.MethodPost, "/v1/dextr3d", q, body, contentType, func(resp *http.Response) error {
		var err error
		result, err = readResultImage(resp)
		return err
	})
	if err != nil {
		return -1, err
	}
	if len(result) == 0 {
		c.log.Warn().Str("model", req.Model.Name).Msg("server returned no result image")
		return StatusNoResult, nil
	}

	if req.PreProcess {
		mask, err := imageproc.Decode(bytes.NewReader(result))
		if err != nil {
			return -1, newError(ErrImageProcessing, err, "decode result image: %v", err)
		}
		if err := imageproc.Save(imageproc.PostProcess(mask, crop), req.OutputPath); err != nil {
			return -1, newError(ErrImageProcessing, err, "write %s: %v", req.OutputPath, err)
		}
		return StatusSuccess, nil
	}
	f, err := fsutil.CreateFile(req.OutputPath)
	if err != nil {
		return -1, newError(ErrSystem, err, "create output: %v", err)
	}
	if _, err := f.Write(result); err != nil {
		f.Close()
		return -1, newError(ErrSystem, err, "write output: %v", err)
	}
	if err := f.Close(); err != nil {
		return -1, newError(ErrSystem, err, "write output: %v", err)
	}
	return StatusSuccess, nil
}

func checkDextr3D(req types.Dextr3DRequest) error {
	switch {
	case req.Model.Name == "":
		return newError(ErrInvalidArgs, nil, "model name is empty")
	case req.Points.Empty():
		return newError(ErrInvalidArgs, nil, "point set is empty")
	case req.OutputPath == "":
		return newError(ErrInvalidArgs, nil, "output path is empty")
	case req.ImagePath == "" && req.SessionID == "":
		return newError(ErrInvalidArgs, nil, "either image path or session id is required")
	case req.PreProcess && req.ImagePath == "":
		return newError(ErrInvalidArgs, nil, "pre-processing requires an input image")
	case req.PreProcess && !imageproc.IsRaster(req.ImagePath):
		return newError(ErrInvalidArgs, nil, "pre-processing supports raster images only, got %s", filepath.Ext(req.ImagePath))
	}
	return nil
}

// encodeDextr3D builds the multipart body: a "params" JSON field and, when
// present, an "image" file part.
func encodeDextr3D(params types.Dextr3DParams, imageName string, imageData []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	pj, err := json.Marshal(params)
	if err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("params", string(pj)); err != nil {
		return nil, "", err
	}
	if imageName != "" {
		fw, err := mw.CreateFormFile("image", imageName)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(imageData); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// readResultImage returns the image bytes of a DEXTR3D response. Multipart
// answers carry the image in the "image" part (or the first file part); any
// other content type is the image itself.
func readResultImage(resp *http.Response) ([]byte, error) {
	mt, mp, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mt, "multipart/") {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, newError(ErrSystem, err, "read response: %v", err)
		}
		return b, nil
	}
	mr := multipart.NewReader(resp.Body, mp["boundary"])
	var fallback []byte
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return fallback, nil
		}
		if err != nil {
			return nil, newError(ErrResponseParse, err, "parse multipart response: %v", err)
		}
		b, err := io.ReadAll(part)
		if err != nil {
			return nil, newError(ErrSystem, err, "read response part: %v", err)
		}
		if part.FormName() == "image" {
			return b, nil
		}
		if fallback == nil && part.FileName() != "" {
			fallback = b
		}
	}
}
