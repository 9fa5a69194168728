package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Envelope is the body of every JSON response. Decimal amounts inside Data
// serialise as strings.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Page struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "status", status, "requestId", payload.RequestID, "err", err)
	}
}

func respond(w http.ResponseWriter, status int, data any, requestID string) {
	WriteJSON(w, status, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Success(w http.ResponseWriter, data any, requestID string) {
	respond(w, http.StatusOK, data, requestID)
}

func Created(w http.ResponseWriter, data any, requestID string) {
	respond(w, http.StatusCreated, data, requestID)
}

// Accepted answers work handed to the background job queue.
func Accepted(w http.ResponseWriter, data any, requestID string) {
	respond(w, http.StatusAccepted, data, requestID)
}

// Paged writes one page of a list and mirrors the total in X-Total-Count.
func Paged(w http.ResponseWriter, page Page, requestID string) {
	if page.Items == nil {
		page.Items = []any{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(page.Total))
	Success(w, page, requestID)
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	FailWithDetails(w, status, code, message, nil, requestID)
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}
