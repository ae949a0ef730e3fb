package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/utils"
)

var DB *gorm.DB

// DefaultUnitPrices are seeded once when the price table is empty.
var DefaultUnitPrices = []models.UnitPrice{
	{PriceType: models.PriceStayPerNight, PricePerUnit: 85},
	{PriceType: models.PriceElectricityPerKWh, PricePerUnit: 0.32},
	{PriceType: models.PriceGasPerCubicMeter, PricePerUnit: 1.05},
	{PriceType: models.PriceFirewoodPerBox, PricePerUnit: 8},
}

// SeedStore inserts default prices and the admin account when missing.
// It runs the same way against MySQL and the in-memory store.
func SeedStore(ctx context.Context, store repository.Store, s Settings, effectiveFrom time.Time) error {
	// ---------------- Unit prices ----------------
	for _, p := range DefaultUnitPrices {
		existing, err := store.ListUnitPrices(ctx, p.PriceType)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		price := p
		price.Currency = "EUR"
		price.EffectiveFrom = utils.DateOnly(effectiveFrom)
		if err := store.CreateUnitPrice(ctx, &price); err != nil {
			return fmt.Errorf("seed price %s: %w", p.PriceType, err)
		}
		log.Printf("Unit price %s seeded (%.2f)", p.PriceType, p.PricePerUnit)
	}

	// ---------------- Admin ----------------
	if s.AdminPassword == "" {
		log.Println("info: ADMIN_PASSWORD not set, admin account not seeded")
		return nil
	}
	email := strings.ToLower(s.AdminEmail)
	if _, err := store.GetGuestByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("warning: failed to hash default admin password: %v", err)
		return nil
	}
	now := time.Now()
	admin := &models.Guest{
		FirstName:      "Admin",
		LastName:       "User",
		Email:          email,
		HashedPassword: string(hash),
		IsAdmin:        true,
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	if err := store.CreateGuest(ctx, admin); err != nil {
		log.Printf("warning: failed to create default admin: %v", err)
		return nil
	}
	log.Println("Default admin seeded")
	return nil
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	if q.Get("loc") == "" {
		q.Set("loc", "UTC")
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode()), nil
}

// ResolveMySQLDSN prefers MYSQL_URL, then DATABASE_URL, then the DB_* parts.
func ResolveMySQLDSN() (string, error) {
	raw := strings.TrimSpace(os.Getenv("MYSQL_URL"))
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		return raw, nil
	}

	user := utils.EnvOrDefault("DB_USER", "root")
	pass := utils.EnvOrDefault("DB_PASS", "")
	host := utils.EnvOrDefault("DB_HOST", "127.0.0.1")
	port := utils.EnvOrDefault("DB_PORT", "3306")
	dbName := utils.EnvOrDefault("DB_NAME", "amrum")

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, pass, host, port, dbName,
	), nil
}

func ConnectDatabase() error {
	dsn, err := ResolveMySQLDSN()
	if err != nil {
		return err
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(utils.EnvInt("DB_MAX_OPEN_CONNS", 20))
		sqlDB.SetMaxIdleConns(utils.EnvInt("DB_MAX_IDLE_CONNS", 5))
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		log.Printf("info: cannot get raw sql.DB: %v", err)
	}

	DB = db

	// parents before children
	return DB.AutoMigrate(
		&models.Guest{},
		&models.Booking{},
		&models.MeterReading{},
		&models.Payment{},
		&models.UnitPrice{},
		&models.BookingToken{},
		&models.CommunicationLog{},
	)
}
