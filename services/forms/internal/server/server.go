package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"formsapi/internal/util"
	"formsapi/internal/validate"
	"formsapi/pkg/domain"
	"formsapi/pkg/result"
	"formsapi/services/forms/internal/app"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
}

// Server exposes the forms operations over HTTP/JSON.
type Server struct {
	app *app.App
	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app: cfg.App,
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.Chain(s.mux, util.WithRequestID, util.WithRequestLog, util.WithSecurityHeaders)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.app.Registry(), promhttp.HandlerOpts{}))

	// auth
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	// users
	s.mux.HandleFunc("GET /api/me", s.handleMe)
	s.mux.HandleFunc("GET /api/users", s.handleUsers)
	s.mux.HandleFunc("GET /api/users/{id}", s.handleUser)
	s.mux.HandleFunc("PATCH /api/users/{id}", s.handleUpdateUser)
	s.mux.HandleFunc("DELETE /api/users/{id}", s.handleDeleteUser)

	// forms
	s.mux.HandleFunc("GET /api/forms", s.handleForms)
	s.mux.HandleFunc("POST /api/forms", s.handleCreateForm)
	s.mux.HandleFunc("GET /api/forms/{id}", s.handleForm)
	s.mux.HandleFunc("PATCH /api/forms/{id}", s.handleUpdateForm)
	s.mux.HandleFunc("DELETE /api/forms/{id}", s.handleDeleteForm)

	// questions
	s.mux.HandleFunc("GET /api/forms/{formId}/questions", s.handleQuestions)
	s.mux.HandleFunc("POST /api/forms/{formId}/questions", s.handleCreateQuestion)
	s.mux.HandleFunc("PUT /api/forms/{formId}/questions/order", s.handleReorderQuestions)
	s.mux.HandleFunc("GET /api/forms/{formId}/questions/{id}", s.handleQuestion)
	s.mux.HandleFunc("PATCH /api/forms/{formId}/questions/{id}", s.handleUpdateQuestion)
	s.mux.HandleFunc("DELETE /api/forms/{formId}/questions/{id}", s.handleDeleteQuestion)

	// responses
	s.mux.HandleFunc("GET /api/forms/{formId}/responses", s.handleResponses)
	s.mux.HandleFunc("POST /api/forms/{formId}/responses", s.handleCreateResponse)
	s.mux.HandleFunc("GET /api/forms/{formId}/responses/{id}", s.handleResponse)
	s.mux.HandleFunc("PATCH /api/forms/{formId}/responses/{id}", s.handleUpdateResponse)
	s.mux.HandleFunc("DELETE /api/forms/{formId}/responses/{id}", s.handleDeleteResponse)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, http.StatusOK, s.app.Health(r.Context()))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req app.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, r, http.StatusCreated, s.app.Register(r.Context(), req))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req app.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, r, http.StatusOK, s.app.Login(r.Context(), req))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, token := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.Logout(r.Context(), identity, token))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.Me(r.Context(), identity))
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.Users(r.Context(), identity))
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.User(r.Context(), identity, r.PathValue("id")))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateUserInput
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.UpdateUser(r.Context(), identity, r.PathValue("id"), req))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, token := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.DeleteUser(r.Context(), identity, r.PathValue("id"), token))
}

func (s *Server) handleForms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := app.ListFormsInput{
		Filter: domain.FormFilter{Title: q.Get("title")},
		Sort:   sortFromQuery(r),
	}
	var v validate.Violations
	in.Filter.CreatedAfter = parseTimeParam(&v, q.Get("createdAfter"), "filter.createdAfter")
	in.Filter.CreatedBefore = parseTimeParam(&v, q.Get("createdBefore"), "filter.createdBefore")
	if !v.Empty() {
		writeResult(w, r, http.StatusBadRequest, result.Fail[struct{}](result.Validation("Invalid filter", v.Details())))
		return
	}
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.Forms(r.Context(), identity, in))
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	var req app.CreateFormInput
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusCreated, s.app.CreateForm(r.Context(), identity, req))
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.Form(r.Context(), identity, r.PathValue("id")))
}

func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateFormInput
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.UpdateForm(r.Context(), identity, r.PathValue("id"), req))
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.DeleteForm(r.Context(), identity, r.PathValue("id")))
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	in := app.ListQuestionsInput{Sort: sortFromQuery(r)}
	writeResult(w, r, http.StatusOK, s.app.Questions(r.Context(), identity, r.PathValue("formId"), in))
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req app.CreateQuestionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusCreated, s.app.CreateQuestion(r.Context(), identity, r.PathValue("formId"), req))
}

func (s *Server) handleReorderQuestions(w http.ResponseWriter, r *http.Request) {
	var req app.ReorderQuestionsInput
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.ReorderQuestions(r.Context(), identity, r.PathValue("formId"), req))
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.Question(r.Context(), identity, r.PathValue("formId"), r.PathValue("id")))
}

func (s *Server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateQuestionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.UpdateQuestion(r.Context(), identity, r.PathValue("formId"), r.PathValue("id"), req))
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.DeleteQuestion(r.Context(), identity, r.PathValue("formId"), r.PathValue("id")))
}

func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	in := app.ListResponsesInput{Sort: sortFromQuery(r)}
	writeResult(w, r, http.StatusOK, s.app.Responses(r.Context(), identity, r.PathValue("formId"), in))
}

// handleCreateResponse is the only unauthenticated write.
func (s *Server) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	var req app.CreateResponseInput
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, r, http.StatusCreated, s.app.CreateResponse(r.Context(), r.PathValue("formId"), req))
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.Response(r.Context(), identity, r.PathValue("formId"), r.PathValue("id")))
}

func (s *Server) handleUpdateResponse(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateResponseInput
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.UpdateResponse(r.Context(), identity, r.PathValue("formId"), r.PathValue("id"), req))
}

func (s *Server) handleDeleteResponse(w http.ResponseWriter, r *http.Request) {
	identity, _ := s.identity(r)
	writeResult(w, r, http.StatusOK, s.app.DeleteResponse(r.Context(), identity, r.PathValue("formId"), r.PathValue("id")))
}

// identity resolves the bearer token; a missing or bad token yields the
// anonymous identity and the operation decides whether that is allowed.
func (s *Server) identity(r *http.Request) (domain.Identity, string) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.Identity{}, ""
	}
	return s.app.Authenticate(r.Context(), token), token
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func sortFromQuery(r *http.Request) domain.Sort {
	q := r.URL.Query()
	return domain.Sort{
		Field: domain.SortField(q.Get("sort")),
		Order: domain.SortOrder(q.Get("direction")),
	}
}

func parseTimeParam(v *validate.Violations, raw, field string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		v.Add(field, "Must be an RFC 3339 timestamp", validate.InvalidValue)
		return time.Time{}
	}
	return t.UTC()
}

// decodeJSON reads one JSON object into dst and writes a VALIDATION_ERROR
// envelope on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	err := dec.Decode(dst)
	if err == nil {
		return true
	}
	message := "Request body must be valid JSON"
	if errors.Is(err, io.EOF) {
		message = "Request body is required"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		message = fmt.Sprintf("Field %s has the wrong type", typeErr.Field)
	}
	util.LoggerFromContext(r.Context()).Debug("invalid request body", "err", err)
	env := result.Validation("Invalid request body", []result.Detail{{
		Field:      "body",
		Message:    message,
		Constraint: validate.InvalidValue,
	}})
	writeResult(w, r, http.StatusBadRequest, result.Fail[struct{}](env))
	return false
}

// writeResult replies with the envelope; failures use the envelope status.
func writeResult[T any](w http.ResponseWriter, r *http.Request, status int, res result.Result[T]) {
	if e := res.Err(); e != nil {
		status = e.HTTPStatus
		if e.Code == result.CodeUnauthorized || e.Code == result.CodeForbidden {
			util.LoggerFromContext(r.Context()).Warn("security_event",
				"event", "access_denied",
				"code", e.Code,
				"method", r.Method,
				"path", r.URL.Path,
			)
		}
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
