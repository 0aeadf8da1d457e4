package domain

import "time"

// Delivery is the envelope published to the outbound transport. A downstream
// gateway picks the channel (SMS, email) from the recipient fields.
type Delivery struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sent_at"`
}

// NewDelivery wraps a rendered notification for a subscriber, stamped with the
// package clock.
func NewDelivery(s Subscriber, n Notification) Delivery {
	return Delivery{
		Name:        s.Name,
		Email:       s.Email,
		PhoneNumber: s.PhoneNumber,
		Text:        n.Text,
		SentAt:      clock.Now().UTC(),
	}
}
