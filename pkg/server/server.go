// Package server exposes a loaded protocol over HTTP so that acquisition and
// projection processes written in any language can request masks.
//
// Routes:
//
//	GET  /protocol               summary of the protocol as JSON
//	GET  /protocol/steps/{step}  sparse polygons of one step as JSON
//	POST /render/{step}          body estimate JSON in, PNG mask out
//	POST /locate                 body estimate JSON in, body-space point out
//
// /render accepts query parameters w and h (mask size in pixels, defaulting
// to the server's size) and flip (1 or true to mirror the pattern). /locate
// takes the image pixel as query parameters x and y, plus flip.
package server

import (
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi"

	"wormillum/internal/models"
	"wormillum/pkg/bodyspace"
	"wormillum/pkg/protocol"
	"wormillum/pkg/render"
)

// maxMaskPixels bounds the mask a single request may ask for.
const maxMaskPixels = 4096 * 4096

// Server serves one protocol. The protocol is read-only while serving.
type Server struct {
	proto     *protocol.Protocol
	size      image.Point
	threshold uint8
	log       *slog.Logger

	// one renderer per concurrent request
	renderers sync.Pool
}

// New returns a server for p rendering masks of the given default size.
// A nil logger uses slog.Default().
func New(p *protocol.Protocol, size image.Point, threshold uint8, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{proto: p, size: size, threshold: threshold, log: logger}
	s.renderers.New = func() interface{} {
		r := render.NewRenderer(p.GridSize, false)
		r.Threshold = threshold
		return r
	}
	return s
}

// Routes builds the server's router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/protocol", s.getProtocol)
	r.Get("/protocol/steps/{step}", s.getStep)
	r.Post("/render/{step}", s.postRender)
	r.Post("/locate", s.postLocate)
	return r
}

// ListenAndServe serves the routes on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("serving protocol", "addr", addr, "steps", s.proto.NumSteps(), "grid", s.proto.GridSize.String())
	return http.ListenAndServe(addr, s.Routes())
}

func (s *Server) getProtocol(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.proto.Summary())
}

type pointJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) getStep(w http.ResponseWriter, r *http.Request) {
	step, ok := s.stepParam(w, r)
	if !ok {
		return
	}
	m, err := s.proto.Step(step)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([][]pointJSON, len(m))
	for i, poly := range m {
		out[i] = make([]pointJSON, len(poly.Points))
		for j, pt := range poly.Points {
			out[i][j] = pointJSON{X: pt.X, Y: pt.Y}
		}
	}
	writeJSON(w, out)
}

func (s *Server) postRender(w http.ResponseWriter, r *http.Request) {
	step, ok := s.stepParam(w, r)
	if !ok {
		return
	}
	size, err := s.sizeParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var est models.BodyEstimate
	err = json.NewDecoder(r.Body).Decode(&est)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rend := s.renderers.Get().(*render.Renderer)
	defer s.renderers.Put(rend)
	rend.Flip = parseBool(r.URL.Query().Get("flip"))

	mask := image.NewGray(image.Rectangle{Max: size})
	if err := rend.Step(mask, s.proto, step, &est); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, mask); err != nil {
		s.log.Error("encode mask", "step", step, "error", err)
		return
	}
	s.log.Debug("rendered", "step", step, "flip", rend.Flip, "size", size.String())
}

func (s *Server) postLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.Atoi(q.Get("x"))
	y, errY := strconv.Atoi(q.Get("y"))
	if errX != nil || errY != nil {
		http.Error(w, "x and y must be integers", http.StatusBadRequest)
		return
	}

	var est models.BodyEstimate
	err := json.NewDecoder(r.Body).Decode(&est)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loc, err := bodyspace.NewLocator(&est, s.proto.GridSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pt := loc.Locate(image.Point{X: x, Y: y}, parseBool(q.Get("flip")))
	writeJSON(w, pointJSON{X: pt.X, Y: pt.Y})
}

func (s *Server) stepParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		http.Error(w, "step must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return step, true
}

func (s *Server) sizeParams(r *http.Request) (image.Point, error) {
	size := s.size
	q := r.URL.Query()
	if v := q.Get("w"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return size, errors.New("w must be an integer")
		}
		size.X = n
	}
	if v := q.Get("h"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return size, errors.New("h must be an integer")
		}
		size.Y = n
	}
	if size.X <= 0 || size.Y <= 0 || size.X > maxMaskPixels/size.Y {
		return size, errors.New("mask size out of range")
	}
	return size, nil
}

// fail maps engine errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrStepIndexOutOfRange):
		code = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidBodyEstimate), errors.Is(err, models.ErrPointIndexOutOfRange),
		errors.Is(err, models.ErrInvalidGridSize):
		code = http.StatusBadRequest
	}
	s.log.Warn("request failed", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
