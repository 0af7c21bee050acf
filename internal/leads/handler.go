package leads

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/bookings"
	httpmiddleware "github.com/nahalewski/Facebook-Messenger-Openai/internal/http/middleware"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

const (
	maxUploadBytes  = 10 << 20
	defaultTokenTTL = 12 * time.Hour
)

// AppointmentLister lists logged appointments for the dashboard.
type AppointmentLister interface {
	List(ctx context.Context) ([]bookings.Record, error)
}

// Handler handles HTTP requests for the leads dashboard
type Handler struct {
	repo         Repository
	appointments AppointmentLister
	secret       string
	tokenTTL     time.Duration
	logger       *logging.Logger
}

// NewHandler creates a new leads handler. secret is the shared admin
// password, also used to sign session tokens.
func NewHandler(repo Repository, appointments AppointmentLister, secret string, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("leads: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:         repo,
		appointments: appointments,
		secret:       secret,
		tokenTTL:     defaultTokenTTL,
		logger:       logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /leads/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.secret)) != 1 {
		h.logger.Warn("leads login rejected", "remote_ip", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	token, err := httpmiddleware.IssueAdminToken(h.secret, "dashboard", h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to issue admin token", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     httpmiddleware.AdminCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.tokenTTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads []Lead `json:"leads"`
	Count int    `json:"count"`
}

// ListLeads handles GET /leads
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "Error reading leads data")
		return
	}
	writeJSON(w, http.StatusOK, ListLeadsResponse{Leads: leads, Count: len(leads)})
}

// Upload handles POST /leads/upload with a multipart csvFile field. The
// sheet is validated before it replaces the current one.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	file, _, err := r.FormFile("csvFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	leads, err := ParseCSV(file)
	if err != nil {
		h.logger.Warn("rejected leads upload", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.Replace(r.Context(), leads); err != nil {
		h.logger.Error("failed to replace leads", "error", err)
		writeError(w, http.StatusInternalServerError, "Error uploading file")
		return
	}
	h.logger.Info("leads sheet replaced", "count", len(leads))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Leads updated successfully",
		"count":   len(leads),
	})
}

// ListAppointmentsResponse is the response for listing appointments
type ListAppointmentsResponse struct {
	Appointments []bookings.Record `json:"appointments"`
	Count        int               `json:"count"`
}

// ListAppointments handles GET /leads/appointments
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	if h.appointments == nil {
		writeJSON(w, http.StatusOK, ListAppointmentsResponse{Appointments: []bookings.Record{}})
		return
	}
	records, err := h.appointments.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "Error reading appointments")
		return
	}
	writeJSON(w, http.StatusOK, ListAppointmentsResponse{Appointments: records, Count: len(records)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
