package api

// HomeSize describes the bedroom/bathroom counts used for pricing.
type HomeSize struct {
	Bedrooms  int `json:"bedrooms"`
	Bathrooms int `json:"bathrooms"`
}

// UserProfile is the backend's view of an account. The base cleaning price is
// computed server-side from the home descriptor.
type UserProfile struct {
	ID             string   `json:"id"`
	Role           string   `json:"role"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	ServiceAddress string   `json:"serviceAddress"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	ZipCode        string   `json:"zipCode"`
	HomeType       string   `json:"homeType"`
	HomeSize       HomeSize `json:"homeSize"`
	CleaningPrice  int      `json:"cleaningPrice"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}

// SignupRequest creates a new account.
type SignupRequest struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Password       string   `json:"password"`
	ServiceAddress string   `json:"serviceAddress"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	ZipCode        string   `json:"zipCode"`
	HomeType       string   `json:"homeType"`
	HomeSize       HomeSize `json:"homeSize"`
}

// ProfileUpdate is a partial profile update; zero-valued fields are omitted
// from the request body and left unchanged by the backend.
type ProfileUpdate struct {
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	ServiceAddress string    `json:"serviceAddress,omitempty"`
	City           string    `json:"city,omitempty"`
	State          string    `json:"state,omitempty"`
	ZipCode        string    `json:"zipCode,omitempty"`
	HomeType       string    `json:"homeType,omitempty"`
	HomeSize       *HomeSize `json:"homeSize,omitempty"`
}

// Booking is a committed server-side booking record.
type Booking struct {
	ID             string   `json:"_id"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	UserID         string   `json:"userId"`
	AddOns         []string `json:"addOns"`
	ServiceAddress string   `json:"serviceAddress"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	ZipCode        string   `json:"zipCode"`
	Status         string   `json:"status"`
}

// BookingRequest commits a booking after payment has been captured.
type BookingRequest struct {
	SelectedDate string   `json:"selectedDate"`
	SelectedTime string   `json:"selectedTime"`
	UserID       string   `json:"userId"`
	AddOns       []string `json:"addOns"`
}

// PaymentIntentRequest asks the backend to create a payment intent for the
// priced booking draft.
type PaymentIntentRequest struct {
	UserID          string   `json:"userId"`
	SelectedAddOns  []string `json:"selectedAddOns"`
	CeilingFanCount int      `json:"ceilingFanCount"`
	TotalPrice      int      `json:"totalPrice"`
}

// PaymentIntent is the processor handle for a single checkout attempt. It is
// never persisted beyond the one confirmation call.
type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
	EphemeralKey string `json:"ephemeralKey"`
	Customer     string `json:"customer"`
}

// AvailabilityMap maps ISO dates (YYYY-MM-DD) to ordered time labels.
type AvailabilityMap map[string][]string

type availabilityResponse struct {
	Availability AvailabilityMap `json:"availability"`
}

type bookingsResponse struct {
	Bookings []Booking `json:"bookings"`
}

type bookingCreatedResponse struct {
	Booking Booking `json:"booking"`
}

type loginResponse struct {
	Token string `json:"token"`
}
