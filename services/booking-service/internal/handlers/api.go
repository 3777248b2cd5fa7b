package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/admin"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// APIHandler serves the JSON surface under /api/v1.
type APIHandler struct {
	bookings *booking.Service
	admin    *admin.Service
	logger   *slog.Logger
}

func NewAPIHandler(bookings *booking.Service, adminSvc *admin.Service, logger *slog.Logger) *APIHandler {
	return &APIHandler{bookings: bookings, admin: adminSvc, logger: logger}
}

func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/appointments", h.Create)
	mux.HandleFunc("GET /api/v1/appointments/{id}", h.Get)
	mux.HandleFunc("POST /api/v1/appointments/lookup", h.Lookup)
	mux.HandleFunc("GET /api/v1/availability", h.Availability)
	mux.HandleFunc("POST /api/v1/admin/sessions", h.Login)
	mux.HandleFunc("DELETE /api/v1/admin/sessions", h.Logout)
	mux.HandleFunc("GET /api/v1/admin/appointments", h.List)
	mux.HandleFunc("PATCH /api/v1/admin/appointments/{id}", h.UpdateStatus)
	mux.HandleFunc("DELETE /api/v1/admin/appointments/{id}", h.Delete)
}

type appointmentResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Service   string    `json:"service"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Service:   a.Service,
		Date:      a.DateString(),
		Time:      a.Time.String(),
		Message:   a.Message,
		Status:    a.Status,
		CreatedAt: a.CreatedAt.UTC(),
	}
}

type createAppointmentRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Message string `json:"message"`
}

type lookupRequest struct {
	Email string   `json:"email"`
	ID    lookupID `json:"id"`
}

// lookupID accepts the appointment id as a JSON number or string; null means absent.
type lookupID string

func (l *lookupID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = lookupID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = lookupID(n.String())
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Operator  admin.Operator `json:"operator"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type availabilityResponse struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *APIHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}
	appt, err := h.bookings.Book(r.Context(), booking.Submission(req))
	if err != nil {
		var cerr *booking.ConflictError
		if errors.As(err, &cerr) {
			writeError(w, http.StatusConflict, "slot_taken", msgSlotTaken)
			return
		}
		h.writeFailure(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/appointments/"+strconv.FormatInt(appt.ID, 10))
	writeJSON(w, http.StatusCreated, toResponse(appt))
}

func (h *APIHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "appointment not found")
		return
	}
	appt, err := h.bookings.Confirmation(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(appt))
}

func (h *APIHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}
	appt, found, err := h.bookings.Lookup(r.Context(), req.Email, string(req.ID))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", msgNoMatch)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(appt))
}

func (h *APIHandler) Availability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if strings.TrimSpace(date) == "" {
		date = h.bookings.Today()
	}
	free, err := h.bookings.AvailableTimes(r.Context(), date)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	resp := availabilityResponse{Date: strings.TrimSpace(date), Times: make([]string, 0, len(free))}
	for _, t := range free {
		resp.Times = append(resp.Times, t.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}
	sess, err := h.admin.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, admin.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", msgBadLogin)
			return
		}
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Operator: sess.Operator})
}

func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if _, err := h.admin.Authorize(r.Context(), token); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if err := h.admin.Logout(r.Context(), token); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.Dashboard(r.Context(), bearerToken(r))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	items := make([]appointmentResponse, 0, len(list))
	for _, a := range list {
		items = append(items, toResponse(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *APIHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if _, err := h.admin.Authorize(r.Context(), token); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "appointment not found")
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}
	appt, err := h.admin.UpdateStatus(r.Context(), token, id, req.Status)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(appt))
}

func (h *APIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if _, err := h.admin.Authorize(r.Context(), token); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "appointment not found")
		return
	}
	if err := h.admin.Delete(r.Context(), token, id); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeFailure maps workflow errors onto the JSON error envelope.
func (h *APIHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *booking.ValidationError
		perr *booking.ParseError
		cerr *booking.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid_request", verr.Error())
	case errors.As(err, &perr):
		writeError(w, http.StatusBadRequest, "invalid_request", parseMessage(perr))
	case errors.As(err, &cerr):
		writeError(w, http.StatusConflict, "slot_taken", msgSlotTaken)
	case errors.Is(err, admin.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid bearer token required")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "appointment not found")
	default:
		h.logger.ErrorContext(r.Context(), "api request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
