package client

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"aiaa/internal/common/fsutil"
	"aiaa/pkg/types"
)

// CreateSession uploads an image once so later calls can reference it by id.
// expirySeconds <= 0 leaves the expiry to the server.
func (c *Client) CreateSession(ctx context.Context, imagePath string, expirySeconds int) (types.Session, error) {
	var s types.Session
	if imagePath == "" {
		return s, newError(ErrInvalidArgs, nil, "image path is empty")
	}
	p, err := fsutil.ExpandHome(imagePath)
	if err != nil {
		return s, newError(ErrSystem, err, "%v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return s, newError(ErrSystem, err, "read image: %v", err)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filepath.Base(p))
	if err == nil {
		_, err = fw.Write(data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return s, newError(ErrSystem, err, "encode request: %v", err)
	}
	q := url.Values{}
	if expirySeconds > 0 {
		q.Set("expiry", strconv.Itoa(expirySeconds))
	}
	err = c.call(ctx, http.MethodPut, "/session/", q, &buf, mw.FormDataContentType(), func(resp *http.Response) error {
		return decodeJSON(resp, &s)
	})
	if err == nil && s.ID == "" {
		err = newError(ErrResponseParse, nil, "server returned no session id")
	}
	return s, err
}

// GetSession reports a session's metadata. A missing session yields an
// error for which IsNotFound is true.
func (c *Client) GetSession(ctx context.Context, id string) (types.Session, error) {
	var s types.Session
	if id == "" {
		return s, newError(ErrInvalidArgs, nil, "session id is empty")
	}
	err := c.call(ctx, http.MethodGet, "/session/"+url.PathEscape(id), nil, nil, "", func(resp *http.Response) error {
		return decodeJSON(resp, &s)
	})
	return s, err
}

// CloseSession releases a server-held session.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	if id == "" {
		return newError(ErrInvalidArgs, nil, "session id is empty")
	}
	return c.call(ctx, http.MethodDelete, "/session/"+url.PathEscape(id), nil, nil, "", func(*http.Response) error { return nil })
}
