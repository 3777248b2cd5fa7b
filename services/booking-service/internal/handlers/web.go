package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/admin"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

const sessionCookie = "appt_session"

const (
	msgBooked        = "Appointment booked successfully! You will receive a confirmation email soon."
	msgSlotTaken     = "This time slot is already booked. Please choose another time."
	msgBookingFailed = "Error booking appointment. Please try again."
	msgNoMatch       = "No appointment found with that information."
	msgBadLogin      = "Invalid credentials"
	msgDeleted       = "Appointment deleted successfully"
)

// CookieConfig controls the attributes of cookies the HTML surface sets.
type CookieConfig struct {
	Secure bool
}

// WebHandler serves the server-rendered pages.
type WebHandler struct {
	bookings *booking.Service
	admin    *admin.Service
	views    *Renderer
	cookies  CookieConfig
	logger   *slog.Logger
}

func NewWebHandler(bookings *booking.Service, adminSvc *admin.Service, views *Renderer, cookies CookieConfig, logger *slog.Logger) *WebHandler {
	return &WebHandler{
		bookings: bookings,
		admin:    adminSvc,
		views:    views,
		cookies:  cookies,
		logger:   logger,
	}
}

func (h *WebHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /book", h.BookForm)
	mux.HandleFunc("POST /book", h.Book)
	mux.HandleFunc("GET /success/{id}", h.Success)
	mux.HandleFunc("GET /check-status", h.CheckStatusForm)
	mux.HandleFunc("POST /check-status", h.CheckStatus)
	mux.HandleFunc("GET /admin/login", h.LoginForm)
	mux.HandleFunc("POST /admin/login", h.Login)
	mux.HandleFunc("GET /admin/dashboard", h.Dashboard)
	mux.HandleFunc("POST /admin/appointments/{id}/status", h.UpdateStatus)
	mux.HandleFunc("POST /admin/appointments/{id}/delete", h.Delete)
	mux.HandleFunc("GET /admin/logout", h.Logout)
	mux.HandleFunc("/", h.NotFound)
}

func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index", viewData{Title: "Welcome"})
}

func (h *WebHandler) BookForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "book", viewData{
		Title: "Book",
		Form:  map[string]string{"date": h.bookings.Today()},
	})
}

func (h *WebHandler) Book(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sub := booking.Submission{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Phone:   r.PostForm.Get("phone"),
		Service: r.PostForm.Get("service"),
		Date:    r.PostForm.Get("date"),
		Time:    r.PostForm.Get("time"),
		Message: r.PostForm.Get("message"),
	}

	appt, err := h.bookings.Book(r.Context(), sub)
	if err != nil {
		status, msg := bookingFailure(err)
		if status >= http.StatusInternalServerError {
			h.logError(r, "booking failed", err)
		}
		data := viewData{
			Title:   "Book",
			Flashes: []Flash{{Category: flashError, Message: msg}},
			Form: map[string]string{
				"name": sub.Name, "email": sub.Email, "phone": sub.Phone, "service": sub.Service,
				"date": sub.Date, "time": sub.Time, "message": sub.Message,
			},
		}
		var cerr *booking.ConflictError
		if errors.As(err, &cerr) {
			data.FreeTimes = h.freeTimes(r.Context(), sub.Date)
		}
		h.render(w, r, status, "book", data)
		return
	}

	h.cookies.setFlash(w, r, flashSuccess, msgBooked)
	http.Redirect(w, r, fmt.Sprintf("/success/%d", appt.ID), http.StatusSeeOther)
}

func (h *WebHandler) Success(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	appt, err := h.bookings.Confirmation(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			h.render(w, r, http.StatusNotFound, "not_found", viewData{Title: "Not found", Message: "Appointment not found."})
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "success", viewData{Title: "Booked", Appointment: &appt})
}

func (h *WebHandler) CheckStatusForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "check_status", viewData{Title: "Check status"})
}

func (h *WebHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	idText := r.PostForm.Get("appointment_id")
	data := viewData{
		Title: "Check status",
		Form:  map[string]string{"email": email, "appointment_id": idText},
	}

	appt, found, err := h.bookings.Lookup(r.Context(), email, idText)
	switch {
	case err != nil:
		status, msg := lookupFailure(err)
		if status >= http.StatusInternalServerError {
			h.logError(r, "status lookup failed", err)
		}
		data.Flashes = []Flash{{Category: flashError, Message: msg}}
		h.render(w, r, status, "check_status", data)
	case !found:
		data.Flashes = []Flash{{Category: flashError, Message: msgNoMatch}}
		h.render(w, r, http.StatusOK, "check_status", data)
	default:
		data.Appointment = &appt
		h.render(w, r, http.StatusOK, "check_status", data)
	}
}

func (h *WebHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.admin.Authorize(r.Context(), sessionToken(r)); err == nil {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "admin_login", viewData{Title: "Login"})
}

func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	sess, err := h.admin.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, admin.ErrInvalidCredentials) {
			h.render(w, r, http.StatusUnauthorized, "admin_login", viewData{
				Title:   "Login",
				Flashes: []Flash{{Category: flashError, Message: msgBadLogin}},
				Form:    map[string]string{"username": username},
			})
			return
		}
		h.serverError(w, r, err)
		return
	}

	// MaxAge rather than Expires so the cookie lifetime does not depend on the client clock.
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.admin.SessionTTL() / time.Second),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (h *WebHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	list, err := h.admin.Dashboard(r.Context(), token)
	if err != nil {
		h.adminFailure(w, r, err)
		return
	}
	op, err := h.admin.Authorize(r.Context(), token)
	if err != nil {
		h.adminFailure(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_dashboard", viewData{
		Title:        "Dashboard",
		Operator:     &op,
		Appointments: list,
		Statuses:     model.KnownStatuses,
	})
}

func (h *WebHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.admin.Authorize(r.Context(), sessionToken(r)); err != nil {
		h.adminFailure(w, r, err)
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	appt, err := h.admin.UpdateStatus(r.Context(), sessionToken(r), id, r.PostForm.Get("status"))
	if err != nil {
		var verr *booking.ValidationError
		if errors.As(err, &verr) {
			h.cookies.setFlash(w, r, flashError, "Status "+verr.Reason+".")
			http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
			return
		}
		h.adminFailure(w, r, err)
		return
	}
	h.cookies.setFlash(w, r, flashSuccess, "Appointment status updated to "+appt.Status)
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (h *WebHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.admin.Authorize(r.Context(), sessionToken(r)); err != nil {
		h.adminFailure(w, r, err)
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	if err := h.admin.Delete(r.Context(), sessionToken(r), id); err != nil {
		h.adminFailure(w, r, err)
		return
	}
	h.cookies.setFlash(w, r, flashSuccess, msgDeleted)
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Logout(r.Context(), sessionToken(r)); err != nil {
		h.logError(r, "logout failed", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *WebHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "not_found", viewData{Title: "Not found"})
}

// adminFailure maps admin workflow errors: no session goes back to the login page,
// an unknown id is a 404 and anything else is a 500.
func (h *WebHandler) adminFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, admin.ErrUnauthorized):
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
	case errors.Is(err, model.ErrNotFound):
		h.render(w, r, http.StatusNotFound, "not_found", viewData{Title: "Not found", Message: "Appointment not found."})
	default:
		h.serverError(w, r, err)
	}
}

func (h *WebHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logError(r, "request failed", err)
	h.render(w, r, http.StatusInternalServerError, "error", viewData{Title: "Error"})
}

func (h *WebHandler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
}

// render adds the queued flashes and the logged-in operator, if any, to data.
func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data viewData) {
	data.Flashes = append(h.cookies.popFlashes(w, r), data.Flashes...)
	if data.Operator == nil {
		if op, err := h.admin.Authorize(r.Context(), sessionToken(r)); err == nil {
			data.Operator = &op
		}
	}
	h.views.Render(w, status, page, data)
}

func (h *WebHandler) freeTimes(ctx context.Context, dateText string) []string {
	free, err := h.bookings.AvailableTimes(ctx, dateText)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(free))
	for _, t := range free {
		out = append(out, t.String())
	}
	return out
}

func sessionToken(r *http.Request) string {
	ck, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return ck.Value
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// bookingFailure maps a booking error onto a status code and the message shown above the form.
func bookingFailure(err error) (int, string) {
	var (
		verr *booking.ValidationError
		perr *booking.ParseError
		cerr *booking.ConflictError
	)
	switch {
	case errors.As(err, &cerr):
		return http.StatusConflict, msgSlotTaken
	case errors.As(err, &verr):
		return http.StatusBadRequest, validationMessage(verr)
	case errors.As(err, &perr):
		return http.StatusBadRequest, parseMessage(perr)
	default:
		return http.StatusInternalServerError, msgBookingFailed
	}
}

func lookupFailure(err error) (int, string) {
	var (
		verr *booking.ValidationError
		perr *booking.ParseError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, validationMessage(verr)
	case errors.As(err, &perr):
		return http.StatusBadRequest, parseMessage(perr)
	default:
		return http.StatusInternalServerError, "Error checking appointment status. Please try again."
	}
}

func validationMessage(err *booking.ValidationError) string {
	if err.Reason == "is required" {
		return fmt.Sprintf("Please fill in the %s field.", err.Field)
	}
	return fmt.Sprintf("The %s field %s.", err.Field, err.Reason)
}

func parseMessage(err *booking.ParseError) string {
	switch err.Field {
	case "date":
		return "Please enter a valid date (YYYY-MM-DD)."
	case "time":
		return "Please enter a valid time (HH:MM)."
	case "appointment_id":
		return "Please enter a valid appointment ID."
	default:
		return msgBookingFailed
	}
}
