package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nilsrambow/amrum-be/models"
)

type memData struct {
	seq      uint
	bookings map[uint]models.Booking
	guests   map[uint]models.Guest
	readings map[uint]models.MeterReading // keyed by booking id
	payments map[uint]models.Payment
	prices   map[uint]models.UnitPrice
	tokens   map[uint]models.BookingToken
	logs     map[uint]models.CommunicationLog
}

func newMemData() *memData {
	return &memData{
		bookings: map[uint]models.Booking{},
		guests:   map[uint]models.Guest{},
		readings: map[uint]models.MeterReading{},
		payments: map[uint]models.Payment{},
		prices:   map[uint]models.UnitPrice{},
		tokens:   map[uint]models.BookingToken{},
		logs:     map[uint]models.CommunicationLog{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (d *memData) clone() *memData {
	return &memData{
		seq:      d.seq,
		bookings: cloneMap(d.bookings),
		guests:   cloneMap(d.guests),
		readings: cloneMap(d.readings),
		payments: cloneMap(d.payments),
		prices:   cloneMap(d.prices),
		tokens:   cloneMap(d.tokens),
		logs:     cloneMap(d.logs),
	}
}

func (d *memData) nextID() uint {
	d.seq++
	return d.seq
}

// MemoryStore is a process-local Store. Transactions hold a single mutex and
// restore a snapshot when the callback fails. Used by tests and DB_DRIVER=memory.
type MemoryStore struct {
	mu   *sync.Mutex
	d    *memData
	inTx bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, d: newMemData()}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.d.clone()
	tx := &MemoryStore{mu: s.mu, d: s.d, inTx: true}
	if err := fn(tx); err != nil {
		*s.d = *snap
		return err
	}
	return nil
}

func sortBookings(list []models.Booking, key func(models.Booking) time.Time) {
	sort.SliceStable(list, func(i, j int) bool {
		ki, kj := key(list[i]), key(list[j])
		if ki.Equal(kj) {
			return list[i].ID < list[j].ID
		}
		return ki.Before(kj)
	})
}

func byCheckIn(b models.Booking) time.Time { return b.CheckIn }

func (s *MemoryStore) withGuest(b models.Booking) models.Booking {
	if g, ok := s.d.guests[b.GuestID]; ok {
		b.Guest = g
	}
	return b
}

func (s *MemoryStore) filterBookings(keep func(models.Booking) bool) []models.Booking {
	list := []models.Booking{}
	for _, b := range s.d.bookings {
		if keep(b) {
			list = append(list, s.withGuest(b))
		}
	}
	return list
}

// ---------------- bookings ----------------

func (s *MemoryStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	defer s.lock()()
	b, ok := s.d.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b = s.withGuest(b)
	return &b, nil
}

func (s *MemoryStore) GetBookingForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	return s.GetBooking(ctx, id)
}

func (s *MemoryStore) ListBookings(ctx context.Context) ([]models.Booking, error) {
	defer s.lock()()
	list := s.filterBookings(func(models.Booking) bool { return true })
	sortBookings(list, byCheckIn)
	return list, nil
}

func (s *MemoryStore) ListBookingsByGuest(ctx context.Context, guestID uint) ([]models.Booking, error) {
	defer s.lock()()
	list := s.filterBookings(func(b models.Booking) bool { return b.GuestID == guestID })
	sortBookings(list, byCheckIn)
	return list, nil
}

func (s *MemoryStore) ListBookingsOverlapping(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	defer s.lock()()
	list := s.filterBookings(func(b models.Booking) bool {
		return b.CheckIn.Before(to) && b.CheckOut.After(from)
	})
	sortBookings(list, byCheckIn)
	return list, nil
}

func (s *MemoryStore) ListUnconfirmedModifiedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	defer s.lock()()
	list := s.filterBookings(func(b models.Booking) bool {
		return !b.Confirmed && !b.ModifiedAt.After(cutoff)
	})
	sortBookings(list, func(b models.Booking) time.Time { return b.ModifiedAt })
	return list, nil
}

func (s *MemoryStore) ListConfirmedArrivingBetween(ctx context.Context, after, until time.Time) ([]models.Booking, error) {
	defer s.lock()()
	list := s.filterBookings(func(b models.Booking) bool {
		return b.Confirmed && b.CheckIn.After(after) && !b.CheckIn.After(until)
	})
	sortBookings(list, byCheckIn)
	return list, nil
}

func (s *MemoryStore) ListConfirmedDepartedBefore(ctx context.Context, day time.Time) ([]models.Booking, error) {
	defer s.lock()()
	list := s.filterBookings(func(b models.Booking) bool {
		return b.Confirmed && !b.CheckOut.After(day)
	})
	sortBookings(list, func(b models.Booking) time.Time { return b.CheckOut })
	return list, nil
}

func (s *MemoryStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	defer s.lock()()
	b.ID = s.d.nextID()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	stored := *b
	stored.Guest = models.Guest{}
	s.d.bookings[b.ID] = stored
	return nil
}

func (s *MemoryStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	defer s.lock()()
	if b.ID == 0 {
		b.ID = s.d.nextID()
	}
	stored := *b
	stored.Guest = models.Guest{}
	s.d.bookings[b.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteBooking(ctx context.Context, id uint) error {
	defer s.lock()()
	if _, ok := s.d.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(s.d.bookings, id)
	return nil
}

// ---------------- guests ----------------

func (s *MemoryStore) GetGuest(ctx context.Context, id uint) (*models.Guest, error) {
	defer s.lock()()
	g, ok := s.d.guests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (s *MemoryStore) findGuestByEmail(email string) (models.Guest, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, g := range s.d.guests {
		if strings.ToLower(g.Email) == email {
			return g, true
		}
	}
	return models.Guest{}, false
}

func (s *MemoryStore) GetGuestByEmail(ctx context.Context, email string) (*models.Guest, error) {
	defer s.lock()()
	g, ok := s.findGuestByEmail(email)
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (s *MemoryStore) ListGuests(ctx context.Context) ([]models.Guest, error) {
	defer s.lock()()
	list := make([]models.Guest, 0, len(s.d.guests))
	for _, g := range s.d.guests {
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (s *MemoryStore) CreateGuest(ctx context.Context, g *models.Guest) error {
	defer s.lock()()
	if _, ok := s.findGuestByEmail(g.Email); ok {
		return ErrDuplicate
	}
	g.ID = s.d.nextID()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	s.d.guests[g.ID] = *g
	return nil
}

func (s *MemoryStore) SaveGuest(ctx context.Context, g *models.Guest) error {
	defer s.lock()()
	if other, ok := s.findGuestByEmail(g.Email); ok && other.ID != g.ID {
		return ErrDuplicate
	}
	if g.ID == 0 {
		g.ID = s.d.nextID()
	}
	s.d.guests[g.ID] = *g
	return nil
}

// ---------------- meter readings ----------------

func (s *MemoryStore) GetMeterReading(ctx context.Context, bookingID uint) (*models.MeterReading, error) {
	defer s.lock()()
	m, ok := s.d.readings[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) SaveMeterReading(ctx context.Context, m *models.MeterReading) error {
	defer s.lock()()
	if m.ID == 0 {
		if existing, ok := s.d.readings[m.BookingID]; ok {
			m.ID = existing.ID
		} else {
			m.ID = s.d.nextID()
			m.CreatedAt = time.Now()
		}
	}
	m.UpdatedAt = time.Now()
	s.d.readings[m.BookingID] = *m
	return nil
}

func (s *MemoryStore) DeleteMeterReading(ctx context.Context, bookingID uint) error {
	defer s.lock()()
	delete(s.d.readings, bookingID)
	return nil
}

// ---------------- payments ----------------

func (s *MemoryStore) ListPayments(ctx context.Context, bookingID uint) ([]models.Payment, error) {
	defer s.lock()()
	list := []models.Payment{}
	for _, p := range s.d.payments {
		if p.BookingID == bookingID {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Date().After(list[j].Date()) })
	return list, nil
}

func (s *MemoryStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	defer s.lock()()
	p.ID = s.d.nextID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.d.payments[p.ID] = *p
	return nil
}

func (s *MemoryStore) DeletePayments(ctx context.Context, bookingID uint) error {
	defer s.lock()()
	for id, p := range s.d.payments {
		if p.BookingID == bookingID {
			delete(s.d.payments, id)
		}
	}
	return nil
}

func (s *MemoryStore) ListPaymentsBetween(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	defer s.lock()()
	list := []models.Payment{}
	for _, p := range s.d.payments {
		b, ok := s.d.bookings[p.BookingID]
		if !ok || !b.Confirmed {
			continue
		}
		d := p.Date()
		if !d.Before(from) && !d.After(to) {
			list = append(list, p)
		}
	}
	return list, nil
}

// ---------------- unit prices ----------------

func (s *MemoryStore) CreateUnitPrice(ctx context.Context, p *models.UnitPrice) error {
	defer s.lock()()
	p.ID = s.d.nextID()
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.d.prices[p.ID] = *p
	return nil
}

func (s *MemoryStore) ListUnitPrices(ctx context.Context, priceType models.PriceType) ([]models.UnitPrice, error) {
	defer s.lock()()
	list := []models.UnitPrice{}
	for _, p := range s.d.prices {
		if p.PriceType == priceType {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].EffectiveFrom.Equal(list[j].EffectiveFrom) {
			return list[i].ID > list[j].ID
		}
		return list[i].EffectiveFrom.After(list[j].EffectiveFrom)
	})
	return list, nil
}

func (s *MemoryStore) EffectiveUnitPrice(ctx context.Context, priceType models.PriceType, day time.Time) (*models.UnitPrice, error) {
	list, err := s.ListUnitPrices(ctx, priceType)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		if p.Covers(day) {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

// ---------------- tokens ----------------

func (s *MemoryStore) CreateToken(ctx context.Context, t *models.BookingToken) error {
	defer s.lock()()
	for _, existing := range s.d.tokens {
		if existing.Token == t.Token {
			return ErrDuplicate
		}
	}
	t.ID = s.d.nextID()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.d.tokens[t.ID] = *t
	return nil
}

func (s *MemoryStore) FindValidToken(ctx context.Context, token string, now time.Time) (*models.BookingToken, error) {
	defer s.lock()()
	for _, t := range s.d.tokens {
		if t.Token == token && t.ExpiresAt.After(now) {
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) LatestValidToken(ctx context.Context, bookingID uint, now time.Time) (*models.BookingToken, error) {
	defer s.lock()()
	var best *models.BookingToken
	for _, t := range s.d.tokens {
		if t.BookingID != bookingID || !t.ExpiresAt.After(now) {
			continue
		}
		if best == nil || t.CreatedAt.After(best.CreatedAt) || (t.CreatedAt.Equal(best.CreatedAt) && t.ID > best.ID) {
			tok := t
			best = &tok
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (s *MemoryStore) TouchToken(ctx context.Context, id uint, at time.Time) error {
	defer s.lock()()
	t, ok := s.d.tokens[id]
	if !ok {
		return ErrNotFound
	}
	t.LastUsedAt = &at
	s.d.tokens[id] = t
	return nil
}

func (s *MemoryStore) DeleteTokens(ctx context.Context, bookingID uint) error {
	defer s.lock()()
	for id, t := range s.d.tokens {
		if t.BookingID == bookingID {
			delete(s.d.tokens, id)
		}
	}
	return nil
}

// ---------------- communication log ----------------

func (s *MemoryStore) CreateCommunicationLog(ctx context.Context, l *models.CommunicationLog) error {
	defer s.lock()()
	l.ID = s.d.nextID()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	s.d.logs[l.ID] = *l
	return nil
}

func (s *MemoryStore) ListCommunicationLogs(ctx context.Context, bookingID uint) ([]models.CommunicationLog, error) {
	defer s.lock()()
	list := []models.CommunicationLog{}
	for _, l := range s.d.logs {
		if l.BookingID != nil && *l.BookingID == bookingID {
			list = append(list, l)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

var _ Store = (*MemoryStore)(nil)
