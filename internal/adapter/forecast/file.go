package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/tide-notifier/internal/domain"
)

// File implements notify.MeasurementSource from a saved copy of the feed.
// It is used for offline previews and fixtures.
type File struct {
	path   string
	logger *slog.Logger
}

// NewFile creates a source reading the feed JSON at path on every Fetch.
func NewFile(path string, logger *slog.Logger) *File {
	return &File{path: path, logger: logger}
}

func (f *File) Fetch(ctx context.Context, day time.Time) ([]domain.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: read forecast file: %w", domain.ErrSourceUnavailable, err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read forecast file: %w", domain.ErrSourceUnavailable, err)
	}
	var extremes []extreme
	if err := json.Unmarshal(data, &extremes); err != nil {
		return nil, fmt.Errorf("%w: decode forecast file %s: %w", domain.ErrSourceUnavailable, f.path, err)
	}
	return peaksForDay(extremes, day.Format(domain.DateLayout), f.logger), nil
}
