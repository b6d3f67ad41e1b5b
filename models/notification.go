package models

// Email type discriminators understood by the notification webhook.
const (
	EmailTypeBookingReference = "BookingReference"
	EmailTypePasswordReset    = "PWReset"
)

// EmailPayload is the body posted to the external notification webhook and
// the payload carried by the queued email task.
type EmailPayload struct {
	EmailType  string `json:"email_type"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name,omitempty"`
	BookingRef string `json:"booking_reference,omitempty"`
	PickupTime string `json:"pickup_time,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Vehicle    string `json:"vehicle,omitempty"`
	Total      string `json:"total,omitempty"`
}
