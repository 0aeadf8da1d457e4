package domain

import "fmt"

const notificationTemplate = "Hello %s, today the high tide is forecast to be at %s warning level. The highest peak will be at %s."

// Render builds the notification text for a subscriber from a forecast peak.
// The peak time is used verbatim.
func Render(m Measurement, s Subscriber) Notification {
	return Notification{
		Text: fmt.Sprintf(notificationTemplate, s.Name, Classify(m.Level), m.Time),
	}
}
