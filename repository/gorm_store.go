package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nilsrambow/amrum-be/models"
)

// GormStore implements Store on top of *gorm.DB.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// duplicate maps unique-key violations (MySQL 1062) to ErrDuplicate.
func duplicate(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysqlDriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return ErrDuplicate
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	lc := strings.ToLower(err.Error())
	if strings.Contains(lc, "duplicate") || strings.Contains(lc, "unique constraint") {
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
}

// ---------------- bookings ----------------

func (s *GormStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db(ctx).Preload("Guest").First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *GormStore) GetBookingForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	var g models.Guest
	if err := s.db(ctx).First(&g, b.GuestID).Error; err == nil {
		b.Guest = g
	}
	return &b, nil
}

func (s *GormStore) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var list []models.Booking
	err := s.db(ctx).Preload("Guest").Order("check_in ASC").Find(&list).Error
	return list, err
}

func (s *GormStore) ListBookingsByGuest(ctx context.Context, guestID uint) ([]models.Booking, error) {
	var list []models.Booking
	err := s.db(ctx).Preload("Guest").
		Where("guest_id = ?", guestID).
		Order("check_in ASC").
		Find(&list).Error
	return list, err
}

// ListBookingsOverlapping locks the scanned range so that a concurrent
// transaction cannot insert an overlapping stay before this one commits.
func (s *GormStore) ListBookingsOverlapping(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	var list []models.Booking
	err := s.db(ctx).Preload("Guest").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("check_in < ? AND check_out > ?", to, from).
		Order("check_in ASC").
		Find(&list).Error
	return list, err
}

func (s *GormStore) ListUnconfirmedModifiedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var list []models.Booking
	err := s.db(ctx).
		Where("confirmed = ? AND modified_at <= ?", false, cutoff).
		Order("modified_at ASC").
		Find(&list).Error
	return list, err
}

func (s *GormStore) ListConfirmedArrivingBetween(ctx context.Context, after, until time.Time) ([]models.Booking, error) {
	var list []models.Booking
	err := s.db(ctx).Preload("Guest").
		Where("confirmed = ? AND check_in > ? AND check_in <= ?", true, after, until).
		Order("check_in ASC").
		Find(&list).Error
	return list, err
}

func (s *GormStore) ListConfirmedDepartedBefore(ctx context.Context, day time.Time) ([]models.Booking, error) {
	var list []models.Booking
	err := s.db(ctx).Preload("Guest").
		Where("confirmed = ? AND check_out <= ?", true, day).
		Order("check_out ASC").
		Find(&list).Error
	return list, err
}

func (s *GormStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return s.db(ctx).Omit("Guest").Create(b).Error
}

func (s *GormStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	return s.db(ctx).Omit("Guest").Save(b).Error
}

func (s *GormStore) DeleteBooking(ctx context.Context, id uint) error {
	res := s.db(ctx).Delete(&models.Booking{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------- guests ----------------

func (s *GormStore) GetGuest(ctx context.Context, id uint) (*models.Guest, error) {
	var g models.Guest
	if err := s.db(ctx).First(&g, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (s *GormStore) GetGuestByEmail(ctx context.Context, email string) (*models.Guest, error) {
	var g models.Guest
	if err := s.db(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&g).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (s *GormStore) ListGuests(ctx context.Context) ([]models.Guest, error) {
	var list []models.Guest
	err := s.db(ctx).Order("id DESC").Find(&list).Error
	return list, err
}

func (s *GormStore) CreateGuest(ctx context.Context, g *models.Guest) error {
	return duplicate(s.db(ctx).Create(g).Error)
}

func (s *GormStore) SaveGuest(ctx context.Context, g *models.Guest) error {
	return duplicate(s.db(ctx).Save(g).Error)
}

// ---------------- meter readings ----------------

func (s *GormStore) GetMeterReading(ctx context.Context, bookingID uint) (*models.MeterReading, error) {
	var m models.MeterReading
	if err := s.db(ctx).Where("booking_id = ?", bookingID).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *GormStore) SaveMeterReading(ctx context.Context, m *models.MeterReading) error {
	return s.db(ctx).Save(m).Error
}

func (s *GormStore) DeleteMeterReading(ctx context.Context, bookingID uint) error {
	return s.db(ctx).Where("booking_id = ?", bookingID).Delete(&models.MeterReading{}).Error
}

// ---------------- payments ----------------

func (s *GormStore) ListPayments(ctx context.Context, bookingID uint) ([]models.Payment, error) {
	var list []models.Payment
	err := s.db(ctx).Where("booking_id = ?", bookingID).Order("payment_date DESC").Find(&list).Error
	return list, err
}

func (s *GormStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	return s.db(ctx).Create(p).Error
}

func (s *GormStore) DeletePayments(ctx context.Context, bookingID uint) error {
	return s.db(ctx).Where("booking_id = ?", bookingID).Delete(&models.Payment{}).Error
}

func (s *GormStore) ListPaymentsBetween(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	var list []models.Payment
	err := s.db(ctx).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.confirmed = ?", true).
		Where("payments.payment_date >= ? AND payments.payment_date <= ?", from, to).
		Find(&list).Error
	return list, err
}

// ---------------- unit prices ----------------

func (s *GormStore) CreateUnitPrice(ctx context.Context, p *models.UnitPrice) error {
	return s.db(ctx).Create(p).Error
}

func (s *GormStore) ListUnitPrices(ctx context.Context, priceType models.PriceType) ([]models.UnitPrice, error) {
	var list []models.UnitPrice
	err := s.db(ctx).Where("price_type = ?", priceType).Order("effective_from DESC").Find(&list).Error
	return list, err
}

func (s *GormStore) EffectiveUnitPrice(ctx context.Context, priceType models.PriceType, day time.Time) (*models.UnitPrice, error) {
	var p models.UnitPrice
	err := s.db(ctx).
		Where("price_type = ? AND effective_from <= ?", priceType, day).
		Where("(effective_to IS NULL OR effective_to >= ?)", day).
		Order("effective_from DESC").
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ---------------- tokens ----------------

func (s *GormStore) CreateToken(ctx context.Context, t *models.BookingToken) error {
	return duplicate(s.db(ctx).Create(t).Error)
}

func (s *GormStore) FindValidToken(ctx context.Context, token string, now time.Time) (*models.BookingToken, error) {
	var t models.BookingToken
	if err := s.db(ctx).Where("token = ? AND expires_at > ?", token, now).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *GormStore) LatestValidToken(ctx context.Context, bookingID uint, now time.Time) (*models.BookingToken, error) {
	var t models.BookingToken
	if err := s.db(ctx).
		Where("booking_id = ? AND expires_at > ?", bookingID, now).
		Order("created_at DESC").
		First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *GormStore) TouchToken(ctx context.Context, id uint, at time.Time) error {
	return s.db(ctx).Model(&models.BookingToken{}).Where("id = ?", id).Update("last_used_at", at).Error
}

func (s *GormStore) DeleteTokens(ctx context.Context, bookingID uint) error {
	return s.db(ctx).Where("booking_id = ?", bookingID).Delete(&models.BookingToken{}).Error
}

// ---------------- communication log ----------------

func (s *GormStore) CreateCommunicationLog(ctx context.Context, l *models.CommunicationLog) error {
	return s.db(ctx).Create(l).Error
}

func (s *GormStore) ListCommunicationLogs(ctx context.Context, bookingID uint) ([]models.CommunicationLog, error) {
	var list []models.CommunicationLog
	err := s.db(ctx).Where("booking_id = ?", bookingID).Order("created_at DESC").Find(&list).Error
	return list, err
}

var _ Store = (*GormStore)(nil)
