package domain

// Measurement is a forecast high-water peak for one day.
type Measurement struct {
	Date  string `json:"date"`  // calendar date, YYYY-MM-DD
	Time  string `json:"time"`  // time of the peak as published, e.g. "04:15"
	Level int    `json:"level"` // centimetres above the reference datum
}

// Severity classifies the measurement's level.
func (m Measurement) Severity() Severity {
	return Classify(m.Level)
}

// Subscriber is a recipient of tide notifications. Fields are opaque and not
// validated.
type Subscriber struct {
	Name        string `json:"name" yaml:"name"`
	Email       string `json:"email" yaml:"email"`
	PhoneNumber string `json:"phone_number" yaml:"phone_number"`
}

// Notification is a fully rendered message ready for delivery.
type Notification struct {
	Text string `json:"text"`
}
