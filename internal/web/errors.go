package web

// errors.go turns engine results and errors into HTTP responses.
//
// Mutating endpoints always answer with a core.Result body. The status code
// is derived from the classified cause carried in Result.Err:
//
//	success                          200
//	unknown category or item         404
//	rejected business rule           422
//	category busy / rate limited     429
//	store unavailable                503
//	anything else                    500

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/stockroom/internal/core"
	"github.com/JonMunkholm/stockroom/internal/web/templates"
)

// ErrorResponse is the JSON body of non-transaction API errors.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps a rejection cause to an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrCategoryNotFound), errors.Is(err, core.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSchemaIncomplete),
		errors.Is(err, core.ErrInsufficientStock),
		errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrInvalidRowIndex),
		errors.Is(err, core.ErrColumnMismatch),
		errors.Is(err, core.ErrLastCategory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrWriteBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondTxn writes a transaction Result with the status of its cause.
func respondTxn(w http.ResponseWriter, r *http.Request, res core.Result) {
	status := http.StatusOK
	if !res.Success {
		status = statusFor(res.Err)
	}
	respondResult(w, r, res, status)
}

// respondResult writes a Result as JSON. HTMX callers get an alert
// fragment instead.
func respondResult(w http.ResponseWriter, r *http.Request, res core.Result, status int) {
	if isHTMX(r) && !res.Success {
		renderErrorPartial(w, r, core.UserMessage{Message: res.Message, Code: res.Code}, status)
		return
	}
	writeJSON(w, status, res)
}

// respondError logs err with the request ID and answers with its mapped
// user message in the format the client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	default:
		respondErrorHTML(w, r, userMsg, statusCode)
	}
}

// respondBadRequest rejects a malformed request without logging it as an
// error.
func respondBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	if !wantsJSON(r) {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: msg, Code: "REQ000"})
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers JSON. API routes always do.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
