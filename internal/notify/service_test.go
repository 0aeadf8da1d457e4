package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/tide-notifier/internal/domain"
	"github.com/couchcryptid/tide-notifier/internal/notify"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeMeasurements struct {
	measurements []domain.Measurement
	err          error
	calls        int
	days         []time.Time
}

func (f *fakeMeasurements) Fetch(_ context.Context, day time.Time) ([]domain.Measurement, error) {
	f.calls++
	f.days = append(f.days, day)
	return f.measurements, f.err
}

type fakeSubscribers struct {
	subscribers []domain.Subscriber
	err         error
	calls       int
}

func (f *fakeSubscribers) Fetch(_ context.Context) ([]domain.Subscriber, error) {
	f.calls++
	return f.subscribers, f.err
}

type sentMessage struct {
	Subscriber   domain.Subscriber
	Notification domain.Notification
}

type fakeSender struct {
	err  error
	sent []sentMessage
}

func (f *fakeSender) Send(_ context.Context, s domain.Subscriber, n domain.Notification) error {
	f.sent = append(f.sent, sentMessage{Subscriber: s, Notification: n})
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	fooBar    = domain.Subscriber{Name: "Foo Bar", Email: "foo@bar.com", PhoneNumber: "3331234567"}
	tizioCaso = domain.Subscriber{Name: "Tizio Caso", Email: "foo@bar.com", PhoneNumber: "3331234567"}
)

// --- tests ---

func TestNotify_SendsToFirstSubscriber(t *testing.T) {
	cases := []struct {
		name        string
		measurement domain.Measurement
		subscriber  domain.Subscriber
		want        domain.Notification
	}{
		{
			name:        "yellow",
			measurement: domain.Measurement{Date: "2023-06-01", Time: "04:15", Level: 85},
			subscriber:  fooBar,
			want: domain.Notification{
				Text: "Hello Foo Bar, today the high tide is forecast to be at yellow warning level. The highest peak will be at 04:15.",
			},
		},
		{
			name:        "orange",
			measurement: domain.Measurement{Date: "2023-06-01", Time: "10:10", Level: 120},
			subscriber:  tizioCaso,
			want: domain.Notification{
				Text: "Hello Tizio Caso, today the high tide is forecast to be at orange warning level. The highest peak will be at 10:10.",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			measurements := &fakeMeasurements{measurements: []domain.Measurement{tc.measurement}}
			subscribers := &fakeSubscribers{subscribers: []domain.Subscriber{tc.subscriber}}
			sender := &fakeSender{}

			svc := notify.New(measurements, subscribers, sender, time.UTC, discardLogger())

			require.NoError(t, svc.Notify(context.Background()))

			assert.Equal(t, 1, measurements.calls)
			assert.Equal(t, 1, subscribers.calls)
			require.Len(t, sender.sent, 1)
			want := sentMessage{Subscriber: tc.subscriber, Notification: tc.want}
			if diff := cmp.Diff(want, sender.sent[0]); diff != "" {
				t.Fatalf("sent message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNotify_UsesFirstOfEach(t *testing.T) {
	measurements := &fakeMeasurements{measurements: []domain.Measurement{
		{Date: "2023-06-01", Time: "04:15", Level: 140},
		{Date: "2023-06-01", Time: "16:40", Level: 60},
	}}
	subscribers := &fakeSubscribers{subscribers: []domain.Subscriber{fooBar, tizioCaso}}
	sender := &fakeSender{}

	svc := notify.New(measurements, subscribers, sender, time.UTC, discardLogger())
	report, err := svc.NotifyOn(context.Background(), time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, fooBar, sender.sent[0].Subscriber)
	assert.Contains(t, sender.sent[0].Notification.Text, "red warning level")
	assert.Contains(t, sender.sent[0].Notification.Text, "04:15")

	assert.True(t, report.Sent)
	assert.Empty(t, report.SkipReason)
	assert.Equal(t, domain.SeverityRed, report.Severity)
	assert.Equal(t, 140, report.Level)
	assert.Equal(t, fooBar, report.Subscriber)
}

func TestNotify_NoMeasurementForToday(t *testing.T) {
	measurements := &fakeMeasurements{}
	subscribers := &fakeSubscribers{subscribers: []domain.Subscriber{fooBar}}
	sender := &fakeSender{}

	svc := notify.New(measurements, subscribers, sender, time.UTC, discardLogger())
	report, err := svc.NotifyOn(context.Background(), time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, 1, measurements.calls)
	assert.Equal(t, 0, subscribers.calls)
	assert.Empty(t, sender.sent)
	assert.False(t, report.Sent)
	assert.Equal(t, notify.SkipNoMeasurement, report.SkipReason)
}

func TestNotify_NoSubscribers(t *testing.T) {
	measurements := &fakeMeasurements{measurements: []domain.Measurement{{Date: "2023-06-01", Time: "04:15", Level: 85}}}
	subscribers := &fakeSubscribers{}
	sender := &fakeSender{}

	svc := notify.New(measurements, subscribers, sender, time.UTC, discardLogger())
	report, err := svc.NotifyOn(context.Background(), time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	assert.Equal(t, notify.SkipNoSubscribers, report.SkipReason)
}

func TestNotify_MeasurementSourceError(t *testing.T) {
	fetchErr := errors.New("feed down")
	measurements := &fakeMeasurements{err: fetchErr}
	subscribers := &fakeSubscribers{subscribers: []domain.Subscriber{fooBar}}
	sender := &fakeSender{}

	svc := notify.New(measurements, subscribers, sender, time.UTC, discardLogger())
	err := svc.Notify(context.Background())

	assert.Same(t, fetchErr, err)
	assert.Equal(t, 0, subscribers.calls)
	assert.Empty(t, sender.sent)
}

func TestNotify_SubscriberDirectoryError(t *testing.T) {
	dirErr := errors.New("directory unreadable")
	measurements := &fakeMeasurements{measurements: []domain.Measurement{{Date: "2023-06-01", Time: "04:15", Level: 85}}}
	subscribers := &fakeSubscribers{err: dirErr}
	sender := &fakeSender{}

	svc := notify.New(measurements, subscribers, sender, time.UTC, discardLogger())
	err := svc.Notify(context.Background())

	assert.Same(t, dirErr, err)
	assert.Empty(t, sender.sent)
}

func TestNotify_SenderErrorReturnedUnchanged(t *testing.T) {
	sendErr := errors.New("gateway rejected message")
	measurements := &fakeMeasurements{measurements: []domain.Measurement{{Date: "2023-06-01", Time: "04:15", Level: 85}}}
	subscribers := &fakeSubscribers{subscribers: []domain.Subscriber{fooBar}}
	sender := &fakeSender{err: sendErr}

	svc := notify.New(measurements, subscribers, sender, time.UTC, discardLogger())
	report, err := svc.NotifyOn(context.Background(), time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))

	assert.Same(t, sendErr, err)
	assert.Len(t, sender.sent, 1)
	assert.False(t, report.Sent)
}

func TestNotify_FetchesTodayInLocation(t *testing.T) {
	// 22:30 UTC on June 1 is already June 2 in Rome.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2023, time.June, 1, 22, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	measurements := &fakeMeasurements{}
	svc := notify.New(measurements, &fakeSubscribers{}, &fakeSender{}, rome, discardLogger())

	require.NoError(t, svc.Notify(context.Background()))
	require.Len(t, measurements.days, 1)
	assert.Equal(t, "2023-06-02", measurements.days[0].Format(domain.DateLayout))
}
