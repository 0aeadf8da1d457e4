// Command preview renders the notification the service would send for a day,
// without touching any transport. It reads a saved copy of the forecast feed
// and the subscribers file, pins the clock to the chosen day, and prints the
// message to stdout.
//
// Usage:
//
//	go run ./cmd/preview \
//	  -forecast testdata/previsione.json \
//	  -subscribers testdata/subscribers.yaml \
//	  -date 2023-06-01
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/tide-notifier/internal/adapter/directory"
	"github.com/couchcryptid/tide-notifier/internal/adapter/forecast"
	"github.com/couchcryptid/tide-notifier/internal/domain"
	"github.com/couchcryptid/tide-notifier/internal/notify"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(out io.Writer) error {
	forecastPath := flag.String("forecast", "", "path to a saved forecast feed JSON file")
	subscribersPath := flag.String("subscribers", "subscribers.yaml", "path to the subscribers YAML file")
	date := flag.String("date", "", "day to preview as YYYY-MM-DD (default: today)")
	tz := flag.String("tz", "Europe/Rome", "time zone deciding which day is today")
	flag.Parse()

	if *forecastPath == "" {
		flag.Usage()
		return errors.New("missing required flag: -forecast")
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("load time zone: %w", err)
	}

	if *date != "" {
		day, err := time.ParseInLocation(domain.DateLayout, *date, loc)
		if err != nil {
			return fmt.Errorf("parse -date: %w", err)
		}
		// Pin "today" to the requested day, early morning like the real schedule.
		domain.SetClock(clockwork.NewFakeClockAt(day.Add(6 * time.Hour)))
		defer domain.SetClock(nil)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	printer := &printSender{out: out}

	svc := notify.New(
		forecast.NewFile(*forecastPath, logger),
		directory.NewFile(*subscribersPath),
		printer,
		loc,
		logger,
	)

	day := domain.Today(loc)
	report, err := svc.NotifyOn(context.Background(), day)
	if err != nil {
		return err
	}

	if !report.Sent {
		fmt.Fprintf(out, "%s: nothing to send (%s)\n", day.Format(domain.DateLayout), report.SkipReason)
		return nil
	}
	fmt.Fprintf(out, "\nlevel %d cm, %s: %s\n", report.Level, report.Severity, report.Severity.Description())
	return nil
}

// printSender writes the notification instead of delivering it.
type printSender struct {
	out io.Writer
}

func (p *printSender) Send(_ context.Context, s domain.Subscriber, n domain.Notification) error {
	_, err := fmt.Fprintf(p.out, "To: %s <%s> %s\n%s\n", s.Name, s.Email, s.PhoneNumber, n.Text)
	return err
}
