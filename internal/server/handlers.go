package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/projection"
	"sourcery.dny.nu/ldforge/rdf"
	"sourcery.dny.nu/ldforge/shacl"
)

// kindInvalidRequest is the error kind for bodies that can't be decoded.
const kindInvalidRequest = "InvalidRequest"

// request is the body accepted by every POST endpoint. Which fields are
// used depends on the endpoint.
type request struct {
	Document json.RawMessage `json:"document,omitempty"`
	Context  json.RawMessage `json:"context,omitempty"`
	Frame    json.RawMessage `json:"frame,omitempty"`
	Shapes   string          `json:"shapes,omitempty"`
	URL      string          `json:"url,omitempty"`
}

type registered struct {
	URN string `json:"urn"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, required ...string) (request, bool) {
	var req request

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()

	err := dec.Decode(&req)
	if err == nil {
		for _, field := range required {
			if req.missing(field) {
				err = fmt.Errorf("missing required field %q", field)
				break
			}
		}
	}

	if err != nil {
		writeResult(s, w, r, ldforge.Result[any]{
			Error: &ldforge.ErrorInfo{Kind: kindInvalidRequest, Message: err.Error()},
		})
		return request{}, false
	}

	return req, true
}

func (req request) missing(field string) bool {
	switch field {
	case "document":
		return len(req.Document) == 0
	case "context":
		return len(req.Context) == 0
	case "frame":
		return len(req.Frame) == 0
	case "shapes":
		return req.Shapes == ""
	}
	return false
}

func status(info *ldforge.ErrorInfo, success int) int {
	if info == nil {
		return success
	}
	switch info.Kind {
	case kindInvalidRequest:
		return http.StatusBadRequest
	case "ContextNotFound":
		return http.StatusNotFound
	case "InternalError":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeResult[T any](s *Server, w http.ResponseWriter, r *http.Request, res ldforge.Result[T]) {
	writeResultStatus(s, w, r, http.StatusOK, res)
}

// writeResultStatus writes res with the status success when it succeeded
// and a status derived from the error kind otherwise.
func writeResultStatus[T any](s *Server, w http.ResponseWriter, r *http.Request, success int, res ldforge.Result[T]) {
	code := status(res.Error, success)

	if res.Error != nil {
		level := slog.LevelDebug
		if code == http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request failed",
			slog.String("kind", res.Error.Kind),
			slog.String("error", res.Error.Message),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	}

	body, err := json.Marshal(res)
	if err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func (s *Server) dataset(ctx context.Context, req request) (*rdf.Dataset, error) {
	nodes, err := s.proc.Expand(ctx, req.Document, req.URL)
	if err != nil {
		return nil, err
	}
	return rdf.FromNodes(nodes)
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() ([]ldforge.Node, error) {
		return s.proc.Expand(r.Context(), req.Document, req.URL)
	}))
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document", "context")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() (json.RawMessage, error) {
		return s.proc.CompactDocument(r.Context(), req.Document, req.Context, req.URL)
	}))
}

func (s *Server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() (json.RawMessage, error) {
		return s.proc.Flatten(r.Context(), req.Document, req.Context, req.URL)
	}))
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document", "frame")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() (json.RawMessage, error) {
		return s.proc.Frame(r.Context(), req.Document, req.Frame, req.URL)
	}))
}

func (s *Server) handleNQuads(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() (string, error) {
		ds, err := s.dataset(r.Context(), req)
		if err != nil {
			return "", err
		}
		return rdf.Serialize(ds.Quads()), nil
	}))
}

func (s *Server) handleCanonical(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() (string, error) {
		ds, err := s.dataset(r.Context(), req)
		if err != nil {
			return "", err
		}
		return rdf.Canonicalize(ds.Quads()), nil
	}))
}

func (s *Server) handleTurtle(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() (string, error) {
		ds, err := s.dataset(r.Context(), req)
		if err != nil {
			return "", err
		}
		return rdf.Turtle(ds.Quads(), s.prefixes), nil
	}))
}

func (s *Server) handleYAML(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() (string, error) {
		return ldforge.YAMLPreview(req.Document)
	}))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document", "shapes")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() (*shacl.Report, error) {
		rep, err := s.validator.ValidateDocument(r.Context(), req.Shapes, req.Document, req.URL)
		if err != nil {
			return nil, err
		}
		return &rep, nil
	}))
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() ([]projection.Row, error) {
		ds, err := s.dataset(r.Context(), req)
		if err != nil {
			return nil, err
		}
		return projection.Table(ds.Quads()), nil
	}))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "document")
	if !ok {
		return
	}
	writeResult(s, w, r, ldforge.Run(func() (*projection.Model, error) {
		ds, err := s.dataset(r.Context(), req)
		if err != nil {
			return nil, err
		}
		m := projection.Graph(ds.Quads(), s.prefixes)
		return &m, nil
	}))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r, "context")
	if !ok {
		return
	}
	writeResultStatus(s, w, r, http.StatusCreated, ldforge.Run(func() (*registered, error) {
		urn, err := s.proc.Resolver().Register(r.Context(), req.Context)
		if err != nil {
			return nil, err
		}
		return &registered{URN: urn}, nil
	}))
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	urn := chi.URLParam(r, "urn")
	writeResult(s, w, r, ldforge.Run(func() (json.RawMessage, error) {
		if !strings.HasPrefix(urn, ldforge.RegistryPrefix) {
			return nil, &ldforge.Error{
				Kind:    ldforge.ErrContextNotFound,
				Ref:     urn,
				Message: fmt.Sprintf("%s is not a registry URN", urn),
			}
		}
		doc, err := s.proc.Resolver().Resolve(r.Context(), urn)
		if err != nil {
			return nil, err
		}
		return doc.Document, nil
	}))
}
