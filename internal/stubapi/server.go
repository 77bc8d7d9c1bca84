// Package stubapi is an in-memory implementation of the booking backend's
// REST contract. It exists so the client can be developed and integration
// tested without the production backend or a Stripe account.
package stubapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/pkg/logging"
)

// Server implements every endpoint the client consumes.
type Server struct {
	store       *store
	jwtSecret   string
	zipPrefixes []string
	logger      *logging.Logger
	metrics     *Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics attaches request metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithZIPPrefixes restricts signup to ZIP codes with the given prefixes. An
// empty list accepts every ZIP.
func WithZIPPrefixes(prefixes []string) Option {
	return func(s *Server) {
		s.zipPrefixes = prefixes
	}
}

// NewServer creates a stub backend signing tokens with jwtSecret.
func NewServer(jwtSecret string, opts ...Option) *Server {
	s := &Server{
		store:     newStore(),
		jwtSecret: jwtSecret,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedUser creates an account directly, bypassing ZIP validation. Used by
// cmd/stubapi to provision the admin login and by tests.
func (s *Server) SeedUser(req api.SignupRequest, role string) (*api.UserProfile, bool) {
	return s.store.createUser(req, role)
}

// SeedAvailability sets a date's time slots directly.
func (s *Server) SeedAvailability(date string, times []string) {
	s.store.setAvailability(date, times)
}

// Router builds the chi router for the §6-shaped REST surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/auth/signup", s.handleSignup)
	r.Post("/api/auth/login", s.handleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)

		pr.Get("/api/users/profile", s.handleProfile)
		pr.Put("/api/users/profile", s.handleUpdateProfile)
		pr.Delete("/api/users/profile", s.handleDeleteProfile)

		pr.Get("/api/admin/get-availability", s.handleGetAvailability)
		pr.Put("/api/admin/update-availability", s.handleUpdateAvailability)
		pr.Delete("/api/admin/delete-availability", s.handleDeleteAvailability)

		pr.Get("/api/bookings/user-bookings", s.handleUserBookings)
		pr.Get("/api/bookings/all", s.handleAllBookings)
		pr.Post("/api/bookings/book", s.handleCreateBooking)
		pr.Delete("/api/bookings/cancel/{id}", s.handleCancelBooking)

		pr.Post("/api/payment/pay", s.handlePaymentIntent)
	})

	return r
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if !s.zipServiced(req.ZipCode) {
		writeError(w, http.StatusBadRequest, "ZIP code not serviced")
		return
	}

	profile, ok := s.store.createUser(req, "customer")
	if !ok {
		writeError(w, http.StatusBadRequest, "an account with this email already exists")
		return
	}

	s.logger.Info("account created", "user_id", profile.ID, "email", profile.Email)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "account created"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, ok := s.store.authenticate(req.Email, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.mintToken(profile.ID, profile.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := s.currentUser(r)
	profile, ok := s.store.user(id)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := s.currentUser(r)

	var update api.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, ok := s.store.updateUser(id, update)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := s.currentUser(r)
	if !s.store.deleteUser(id) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

func (s *Server) handleGetAvailability(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"availability": s.store.availabilitySnapshot()})
}

func (s *Server) handleUpdateAvailability(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var req struct {
		Date  string   `json:"date"`
		Times []string `json:"times"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Date == "" {
		writeError(w, http.StatusBadRequest, "date and times are required")
		return
	}

	s.store.setAvailability(req.Date, req.Times)
	writeJSON(w, http.StatusOK, map[string]string{"message": "availability updated"})
}

func (s *Server) handleDeleteAvailability(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	s.store.deleteAvailability(req.Date)
	writeJSON(w, http.StatusOK, map[string]string{"message": "availability deleted"})
}

func (s *Server) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	id, _ := s.currentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{"bookings": s.store.bookingsForUser(id)})
}

func (s *Server) handleAllBookings(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": s.store.allBookings()})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	id, _ := s.currentUser(r)

	var req api.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SelectedDate == "" || req.SelectedTime == "" {
		writeError(w, http.StatusBadRequest, "date and time are required")
		return
	}
	if req.UserID == "" {
		req.UserID = id
	}

	profile, ok := s.store.user(req.UserID)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown user")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if !s.store.hasTime(req.SelectedDate, req.SelectedTime) {
		// A replayed request may legitimately name a slot this same booking
		// already consumed.
		if booking, replay := s.store.replayBooking(idempotencyKey); replay {
			s.metrics.observeBooking("replayed")
			writeJSON(w, http.StatusCreated, map[string]any{"booking": booking})
			return
		}
		writeError(w, http.StatusConflict, "selected time is not available")
		return
	}

	booking, replay := s.store.createBooking(req, *profile, idempotencyKey)
	if replay {
		s.metrics.observeBooking("replayed")
	} else {
		s.store.removeTime(req.SelectedDate, req.SelectedTime)
		s.metrics.observeBooking("created")
		s.logger.Info("booking created",
			"booking_id", booking.ID, "user_id", req.UserID,
			"date", req.SelectedDate, "time", req.SelectedTime)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"booking": booking})
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, _ := s.currentUser(r)
	bookingID := chi.URLParam(r, "id")

	booking, ok := s.store.booking(bookingID)
	if !ok {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	caller, _ := s.store.user(id)
	if booking.UserID != id && !caller.IsAdmin() {
		writeError(w, http.StatusForbidden, "not your booking")
		return
	}

	s.store.deleteBooking(bookingID)
	// Returning the slot to the pool keeps the dev calendar usable.
	s.store.setAvailability(booking.Date, append(s.store.availabilitySnapshot()[booking.Date], booking.Time))
	writeJSON(w, http.StatusOK, map[string]string{"message": "booking cancelled"})
}

func (s *Server) handlePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req api.PaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TotalPrice <= 0 {
		writeError(w, http.StatusBadRequest, "total price must be positive")
		return
	}

	intent := s.store.paymentIntent(r.Header.Get("Idempotency-Key"))
	writeJSON(w, http.StatusOK, intent)
}

// requireAdmin writes a 403 and returns false when the caller is not admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	id, _ := s.currentUser(r)
	profile, ok := s.store.user(id)
	if !ok || !profile.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin access required")
		return false
	}
	return true
}

func (s *Server) zipServiced(zip string) bool {
	if len(s.zipPrefixes) == 0 {
		return true
	}
	for _, prefix := range s.zipPrefixes {
		if strings.HasPrefix(zip, prefix) {
			return true
		}
	}
	return false
}

// countRequests records a per-route, per-status counter for every request.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.observeRequest(route, http.StatusText(ww.Status()))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
