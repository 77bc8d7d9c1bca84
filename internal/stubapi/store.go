package stubapi

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jmaccleaning/cleanbook/internal/api"
)

// userRecord is a stored account; the password stays server-side only.
type userRecord struct {
	profile  api.UserProfile
	password string
}

// store holds all stub backend state in memory. One mutex guards everything;
// the stub exists for development and tests, not throughput.
type store struct {
	mu           sync.Mutex
	usersByID    map[string]*userRecord
	usersByEmail map[string]*userRecord
	availability map[string][]string
	bookings     map[string]*api.Booking
	// idempotency maps Idempotency-Key values to the id of the booking or
	// payment intent they first produced, so replays return the original.
	bookingKeys map[string]string
	intentKeys  map[string]*api.PaymentIntent
}

func newStore() *store {
	return &store{
		usersByID:    make(map[string]*userRecord),
		usersByEmail: make(map[string]*userRecord),
		availability: make(map[string][]string),
		bookings:     make(map[string]*api.Booking),
		bookingKeys:  make(map[string]string),
		intentKeys:   make(map[string]*api.PaymentIntent),
	}
}

// basePriceFor mirrors the production pricing rule closely enough for
// development: a flat floor plus per-room increments, with a premium for
// houses.
func basePriceFor(homeType string, size api.HomeSize) int {
	price := 80 + 25*size.Bedrooms + 20*size.Bathrooms
	if strings.EqualFold(homeType, "house") {
		price += 20
	}
	return price
}

func (s *store) createUser(req api.SignupRequest, role string) (*api.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, exists := s.usersByEmail[email]; exists {
		return nil, false
	}

	rec := &userRecord{
		profile: api.UserProfile{
			ID:             uuid.NewString(),
			Role:           role,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Email:          email,
			Phone:          req.Phone,
			ServiceAddress: req.ServiceAddress,
			City:           req.City,
			State:          req.State,
			ZipCode:        req.ZipCode,
			HomeType:       req.HomeType,
			HomeSize:       req.HomeSize,
			CleaningPrice:  basePriceFor(req.HomeType, req.HomeSize),
		},
		password: req.Password,
	}
	s.usersByID[rec.profile.ID] = rec
	s.usersByEmail[email] = rec
	return &rec.profile, true
}

func (s *store) authenticate(email, password string) (*api.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok || rec.password != password {
		return nil, false
	}
	profile := rec.profile
	return &profile, true
}

func (s *store) user(id string) (*api.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.usersByID[id]
	if !ok {
		return nil, false
	}
	profile := rec.profile
	return &profile, true
}

// updateUser applies a partial update; only non-zero fields change. The base
// price is recomputed when the home descriptor changes.
func (s *store) updateUser(id string, update api.ProfileUpdate) (*api.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.usersByID[id]
	if !ok {
		return nil, false
	}

	p := &rec.profile
	if update.FirstName != "" {
		p.FirstName = update.FirstName
	}
	if update.LastName != "" {
		p.LastName = update.LastName
	}
	if update.Email != "" {
		delete(s.usersByEmail, p.Email)
		p.Email = strings.ToLower(strings.TrimSpace(update.Email))
		s.usersByEmail[p.Email] = rec
	}
	if update.Phone != "" {
		p.Phone = update.Phone
	}
	if update.ServiceAddress != "" {
		p.ServiceAddress = update.ServiceAddress
	}
	if update.City != "" {
		p.City = update.City
	}
	if update.State != "" {
		p.State = update.State
	}
	if update.ZipCode != "" {
		p.ZipCode = update.ZipCode
	}
	if update.HomeType != "" {
		p.HomeType = update.HomeType
	}
	if update.HomeSize != nil {
		p.HomeSize = *update.HomeSize
	}
	if update.HomeType != "" || update.HomeSize != nil {
		p.CleaningPrice = basePriceFor(p.HomeType, p.HomeSize)
	}

	profile := *p
	return &profile, true
}

func (s *store) deleteUser(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.usersByID[id]
	if !ok {
		return false
	}
	delete(s.usersByID, id)
	delete(s.usersByEmail, rec.profile.Email)
	return true
}

func (s *store) availabilitySnapshot() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string, len(s.availability))
	for date, times := range s.availability {
		out[date] = append([]string(nil), times...)
	}
	return out
}

func (s *store) setAvailability(date string, times []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.availability[date] = append([]string(nil), times...)
}

func (s *store) deleteAvailability(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.availability, date)
}

// removeTime drops one time slot from a date after it is booked.
func (s *store) removeTime(date, timeLabel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	times := s.availability[date]
	for i, t := range times {
		if t == timeLabel {
			s.availability[date] = append(times[:i:i], times[i+1:]...)
			return
		}
	}
}

func (s *store) hasTime(date, timeLabel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.availability[date] {
		if t == timeLabel {
			return true
		}
	}
	return false
}

// replayBooking returns the booking a previously seen idempotency key
// produced, without creating anything.
func (s *store) replayBooking(idempotencyKey string) (*api.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idempotencyKey == "" {
		return nil, false
	}
	id, seen := s.bookingKeys[idempotencyKey]
	if !seen {
		return nil, false
	}
	existing, ok := s.bookings[id]
	if !ok {
		return nil, false
	}
	b := *existing
	return &b, true
}

// createBooking commits a booking, replaying the stored result when the
// idempotency key was seen before.
func (s *store) createBooking(req api.BookingRequest, snapshot api.UserProfile, idempotencyKey string) (*api.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idempotencyKey != "" {
		if id, seen := s.bookingKeys[idempotencyKey]; seen {
			if existing, ok := s.bookings[id]; ok {
				b := *existing
				return &b, true
			}
		}
	}

	booking := &api.Booking{
		ID:             uuid.NewString(),
		Date:           req.SelectedDate,
		Time:           req.SelectedTime,
		UserID:         req.UserID,
		AddOns:         append([]string(nil), req.AddOns...),
		ServiceAddress: snapshot.ServiceAddress,
		City:           snapshot.City,
		State:          snapshot.State,
		ZipCode:        snapshot.ZipCode,
		Status:         "scheduled",
	}
	s.bookings[booking.ID] = booking
	if idempotencyKey != "" {
		s.bookingKeys[idempotencyKey] = booking.ID
	}

	b := *booking
	return &b, false
}

func (s *store) booking(id string) (*api.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, false
	}
	b := *booking
	return &b, true
}

func (s *store) deleteBooking(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bookings, id)
}

func (s *store) bookingsForUser(userID string) []api.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []api.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out
}

func (s *store) allBookings() []api.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]api.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, *b)
	}
	return out
}

// paymentIntent fabricates a processor handle, replaying on key reuse.
func (s *store) paymentIntent(idempotencyKey string) *api.PaymentIntent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idempotencyKey != "" {
		if intent, seen := s.intentKeys[idempotencyKey]; seen {
			out := *intent
			return &out
		}
	}

	intent := &api.PaymentIntent{
		ClientSecret: "pi_" + shortID() + "_secret_" + shortID(),
		EphemeralKey: "ek_" + shortID(),
		Customer:     "cus_" + shortID(),
	}
	if idempotencyKey != "" {
		s.intentKeys[idempotencyKey] = intent
	}
	out := *intent
	return &out
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
