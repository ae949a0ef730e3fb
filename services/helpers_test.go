package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// recordingComms captures messages; fail makes Send return an error for the
// listed templates.
type recordingComms struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]bool
}

func (r *recordingComms) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[msg.Template] {
		return ErrNotificationFailed
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingComms) byTemplate(name string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.sent {
		if m.Template == name {
			out = append(out, m)
		}
	}
	return out
}

type stubRegistration struct {
	url string
	err error
}

func (s stubRegistration) FetchRegistrationURL(ctx context.Context, email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

var errBoom = errors.New("boom")

func seedPrice(store repository.Store, pt models.PriceType, price float64, from string) {
	_ = store.CreateUnitPrice(context.Background(), &models.UnitPrice{
		PriceType:     pt,
		PricePerUnit:  price,
		EffectiveFrom: date(from),
	})
}
