package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/tide-notifier/internal/domain"
)

// MeasurementSource returns the forecast peaks for a calendar day.
type MeasurementSource interface {
	Fetch(ctx context.Context, day time.Time) ([]domain.Measurement, error)
}

// SubscriberDirectory returns the subscribers to notify.
type SubscriberDirectory interface {
	Fetch(ctx context.Context) ([]domain.Subscriber, error)
}

// MessageSender delivers a rendered notification to one subscriber.
type MessageSender interface {
	Send(ctx context.Context, subscriber domain.Subscriber, notification domain.Notification) error
}

// Skip reasons reported when no notification is sent.
const (
	SkipNoMeasurement = "no_measurement"
	SkipNoSubscribers = "no_subscribers"
)

// Report describes the outcome of a single notification run.
type Report struct {
	Day        time.Time
	Sent       bool
	SkipReason string
	Severity   domain.Severity
	Subscriber domain.Subscriber
	Level      int
}

// Service decides whether today's forecast warrants a notification and sends it.
// It holds no mutable state; every call is an independent request/response cycle.
type Service struct {
	measurements MeasurementSource
	subscribers  SubscriberDirectory
	sender       MessageSender
	location     *time.Location
	logger       *slog.Logger
}

// New creates a Service. The location decides which calendar day "today" is;
// nil means UTC.
func New(m MeasurementSource, s SubscriberDirectory, snd MessageSender, location *time.Location, logger *slog.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		measurements: m,
		subscribers:  s,
		sender:       snd,
		location:     location,
		logger:       logger,
	}
}

// Notify sends today's tide notification, if there is a forecast for today.
// Collaborator errors are returned unchanged.
func (s *Service) Notify(ctx context.Context) error {
	_, err := s.NotifyOn(ctx, domain.Today(s.location))
	return err
}

// NotifyOn runs the notification cycle for the given day: at most one send to
// the first subscriber, rendered from the first measurement.
func (s *Service) NotifyOn(ctx context.Context, day time.Time) (Report, error) {
	report := Report{Day: day}

	measurements, err := s.measurements.Fetch(ctx, day)
	if err != nil {
		return report, err
	}
	if len(measurements) == 0 {
		s.logger.Debug("no forecast for day, nothing to send", "day", day.Format(domain.DateLayout))
		report.SkipReason = SkipNoMeasurement
		return report, nil
	}

	subscribers, err := s.subscribers.Fetch(ctx)
	if err != nil {
		return report, err
	}
	if len(subscribers) == 0 {
		s.logger.Warn("forecast available but no subscribers registered", "day", day.Format(domain.DateLayout))
		report.SkipReason = SkipNoSubscribers
		return report, nil
	}

	measurement := measurements[0]
	subscriber := subscribers[0]
	notification := domain.Render(measurement, subscriber)

	report.Severity = measurement.Severity()
	report.Level = measurement.Level
	report.Subscriber = subscriber

	if err := s.sender.Send(ctx, subscriber, notification); err != nil {
		return report, err
	}
	report.Sent = true

	s.logger.Info("notification sent",
		"day", day.Format(domain.DateLayout),
		"severity", report.Severity,
		"level", measurement.Level,
		"peak_time", measurement.Time,
		"recipient", subscriber.Email,
	)
	return report, nil
}
