package mockserver

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"aiaa/internal/catalog"
	"aiaa/internal/imageproc"
	"aiaa/pkg/types"
)

// MemoryService implements Service over an in-memory catalog and session map.
type MemoryService struct {
	catalog *catalog.Catalog

	// EmptyResult makes every DEXTR3D call answer 200 with no image.
	EmptyResult bool

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	calls    atomic.Int64
	lastReq  types.Dextr3DParams
	lastName string
}

type session struct {
	info  types.Session
	image []byte
}

// NewMemoryService creates a service serving the models of c.
func NewMemoryService(c *catalog.Catalog) *MemoryService {
	if c == nil {
		c = catalog.New(nil)
	}
	return &MemoryService{catalog: c, now: time.Now, sessions: map[string]*session{}}
}

// InferCalls reports how many DEXTR3D requests reached the service.
func (s *MemoryService) InferCalls() int64 { return s.calls.Load() }

// LastDextr3D returns the model name and params of the most recent call.
func (s *MemoryService) LastDextr3D() (string, types.Dextr3DParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastName, s.lastReq
}

// ListModels applies f. A name filter uses the same lookup as Dextr3D.
func (s *MemoryService) ListModels(f ModelFilter) []types.Model {
	if f.Name == "" {
		return s.catalog.Filter(f.Label, f.Type)
	}
	m, ok := s.catalog.Get(f.Name)
	if !ok {
		return nil
	}
	return catalog.New([]types.Model{m}).Filter(f.Label, f.Type)
}

// Dextr3D answers with a mask covering the x/y bounding box of the points
// when the input decodes as a raster image, and echoes the input otherwise.
func (s *MemoryService) Dextr3D(ctx context.Context, model string, params types.Dextr3DParams, img []byte) ([]byte, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastName, s.lastReq = model, params
	s.mu.Unlock()

	if _, ok := s.catalog.Get(model); !ok {
		inferenceTotal.WithLabelValues(model, "not_found").Inc()
		return nil, ErrModelNotFound(model)
	}
	points, err := types.ParsePointSet(params.Points)
	if err != nil {
		inferenceTotal.WithLabelValues(model, "bad_request").Inc()
		return nil, ErrBadRequest("invalid points: " + err.Error())
	}
	if params.SessionID != "" {
		sess, err := s.lookup(params.SessionID)
		if err != nil {
			inferenceTotal.WithLabelValues(model, "bad_request").Inc()
			return nil, err
		}
		img = sess.image
	}
	if len(img) == 0 {
		inferenceTotal.WithLabelValues(model, "bad_request").Inc()
		return nil, ErrBadRequest("image is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.EmptyResult {
		inferenceTotal.WithLabelValues(model, "empty").Inc()
		return nil, nil
	}
	inferenceTotal.WithLabelValues(model, "ok").Inc()
	src, err := imageproc.Decode(bytes.NewReader(img))
	if err != nil {
		return img, nil
	}
	return boxMask(src.Bounds(), points)
}

func boxMask(bounds image.Rectangle, points types.PointSet) ([]byte, error) {
	mask := imaging.New(bounds.Dx(), bounds.Dy(), color.Black)
	lo, hi := points.Bounds()
	box := image.Rect(lo[0], lo[1], hi[0]+1, hi[1]+1).Intersect(mask.Bounds())
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			mask.Set(x, y, color.White)
		}
	}
	return imageproc.EncodePNG(mask)
}

func (s *MemoryService) CreateSession(img []byte, name string, expirySeconds int) (types.Session, error) {
	if len(img) == 0 {
		return types.Session{}, ErrBadRequest("image is empty")
	}
	if expirySeconds <= 0 {
		expirySeconds = 3600
	}
	info := types.Session{
		ID:          uuid.NewString(),
		Expiry:      expirySeconds,
		ImageName:   name,
		CreatedUnix: s.now().Unix(),
	}
	s.mu.Lock()
	s.sessions[info.ID] = &session{info: info, image: img}
	n := len(s.sessions)
	s.mu.Unlock()
	sessionsActive.Set(float64(n))
	return info, nil
}

func (s *MemoryService) GetSession(id string) (types.Session, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.Session{}, err
	}
	return sess.info, nil
}

func (s *MemoryService) CloseSession(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound(id)
	}
	sessionsActive.Set(float64(n))
	return nil
}

// lookup returns the live session id, dropping it when it has expired.
func (s *MemoryService) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound(id)
	}
	deadline := time.Unix(sess.info.CreatedUnix, 0).Add(time.Duration(sess.info.Expiry) * time.Second)
	if s.now().After(deadline) {
		delete(s.sessions, id)
		sessionsActive.Set(float64(len(s.sessions)))
		return nil, ErrSessionNotFound(id)
	}
	return sess, nil
}
