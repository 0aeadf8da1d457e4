// Package directory loads the subscriber list from a YAML file.
//
// The file is read on every Fetch, so edits take effect on the next
// notification run without a restart. Expected layout:
//
//	subscribers:
//	  - name: Foo Bar
//	    email: foo@bar.com
//	    phone_number: "3331234567"
package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/tide-notifier/internal/domain"
	yaml "go.yaml.in/yaml/v3"
)

// File implements notify.SubscriberDirectory backed by a YAML file.
type File struct {
	path string
}

// NewFile creates a directory reading subscribers from path.
func NewFile(path string) *File {
	return &File{path: path}
}

type document struct {
	Subscribers []domain.Subscriber `yaml:"subscribers"`
}

// Fetch returns the subscribers in file order.
func (f *File) Fetch(ctx context.Context) ([]domain.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: read subscribers: %w", domain.ErrSourceUnavailable, err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read subscribers: %w", domain.ErrSourceUnavailable, err)
	}
	subs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, f.path, err)
	}
	return subs, nil
}

// Parse decodes a subscribers document. Unknown fields are rejected.
func Parse(data []byte) ([]domain.Subscriber, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse subscribers: %w", err)
	}
	return doc.Subscribers, nil
}
