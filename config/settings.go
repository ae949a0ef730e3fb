package config

import (
	"strings"
	"time"

	"github.com/nilsrambow/amrum-be/services"
	"github.com/nilsrambow/amrum-be/utils"
)

// Settings is the runtime configuration read from the environment.
type Settings struct {
	Port        string
	CorsOrigins []string
	DBDriver    string

	FrontendURL  string
	PropertyName string
	AgentEmail   string

	AutoConfirmDelay           time.Duration
	KurkartenLeadDays          int
	PreArrivalLeadDays         int
	InvoiceDelayDays           int
	TokenGraceDays             int
	RejectPastCheckIn          bool
	KurkartenResponseDelayDays int
	ReadingsDelayDays          int
	PaymentDelayDays           int

	KurkartenAPIURL  string
	KurkartenTimeout time.Duration

	MailDriver string
	SMTP       services.SMTPConfig
	SESFrom    string

	JWTSecret          string
	JWTTTL             time.Duration
	RateLimitPerMinute int
	RedisURL           string

	SchedulerEnabled  bool
	SchedulerTimezone string

	AdminEmail    string
	AdminPassword string
}

func LoadSettings() Settings {
	def := services.DefaultPolicy()
	return Settings{
		Port:        utils.EnvOrDefault("PORT", "8080"),
		CorsOrigins: ParseCorsOrigins(utils.EnvOrDefault("CORS_ORIGINS", "")),
		DBDriver:    strings.ToLower(utils.EnvOrDefault("DB_DRIVER", "mysql")),

		FrontendURL:  utils.EnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		PropertyName: utils.EnvOrDefault("PROPERTY_NAME", "Haus Amrum"),
		AgentEmail:   utils.EnvOrDefault("AGENT_EMAIL", def.AgentEmail),

		AutoConfirmDelay:           utils.EnvDuration("AUTO_CONFIRM_DELAY_HOURS", 36, time.Hour),
		KurkartenLeadDays:          utils.EnvInt("KURKARTEN_LEAD_DAYS", def.KurkartenLeadDays),
		PreArrivalLeadDays:         utils.EnvInt("PRE_ARRIVAL_LEAD_DAYS", def.PreArrivalLeadDays),
		InvoiceDelayDays:           utils.EnvInt("INVOICE_DELAY_DAYS", def.InvoiceDelayDays),
		TokenGraceDays:             utils.EnvInt("TOKEN_GRACE_DAYS", def.TokenGraceDays),
		RejectPastCheckIn:          utils.EnvBool("REJECT_PAST_CHECK_IN", false),
		KurkartenResponseDelayDays: utils.EnvInt("KURKARTEN_RESPONSE_DELAY_DAYS", def.KurkartenResponseDelayDays),
		ReadingsDelayDays:          utils.EnvInt("READINGS_DELAY_DAYS", def.ReadingsDelayDays),
		PaymentDelayDays:           utils.EnvInt("PAYMENT_DELAY_DAYS", def.PaymentDelayDays),

		KurkartenAPIURL:  utils.EnvOrDefault("KURKARTEN_API_URL", ""),
		KurkartenTimeout: utils.EnvDuration("KURKARTEN_TIMEOUT_SECONDS", 10, time.Second),

		MailDriver: strings.ToLower(utils.EnvOrDefault("MAIL_DRIVER", "smtp")),
		SMTP: services.SMTPConfig{
			Host:     utils.EnvOrDefault("SMTP_HOST", ""),
			Port:     utils.EnvInt("SMTP_PORT", 587),
			Username: utils.EnvOrDefault("SMTP_USER", ""),
			Password: utils.EnvOrDefault("SMTP_PASSWORD", ""),
			From:     utils.EnvOrDefault("SMTP_FROM", "noreply@example.com"),
			FromName: utils.EnvOrDefault("SMTP_FROM_NAME", "Haus Amrum"),
		},
		SESFrom: utils.EnvOrDefault("SES_FROM", ""),

		JWTSecret:          utils.EnvOrDefault("JWT_SECRET", ""),
		JWTTTL:             utils.EnvDuration("JWT_TTL_HOURS", 24, time.Hour),
		RateLimitPerMinute: utils.EnvInt("RATE_LIMIT_PER_MINUTE", 600),
		RedisURL:           utils.EnvOrDefault("REDIS_URL", ""),

		SchedulerEnabled:  utils.EnvBool("SCHEDULER_ENABLED", true),
		SchedulerTimezone: utils.EnvOrDefault("SCHEDULER_TIMEZONE", "Europe/Berlin"),

		AdminEmail:    utils.EnvOrDefault("ADMIN_EMAIL", "admin@amrum.local"),
		AdminPassword: utils.EnvOrDefault("ADMIN_PASSWORD", ""),
	}
}

// Policy returns the workflow rules configured for the coordinator.
func (s Settings) Policy() services.Policy {
	return services.Policy{
		AutoConfirmDelay:           s.AutoConfirmDelay,
		KurkartenLeadDays:          s.KurkartenLeadDays,
		PreArrivalLeadDays:         s.PreArrivalLeadDays,
		InvoiceDelayDays:           s.InvoiceDelayDays,
		TokenGraceDays:             s.TokenGraceDays,
		RejectPastCheckIn:          s.RejectPastCheckIn,
		AgentEmail:                 s.AgentEmail,
		KurkartenResponseDelayDays: s.KurkartenResponseDelayDays,
		ReadingsDelayDays:          s.ReadingsDelayDays,
		PaymentDelayDays:           s.PaymentDelayDays,
	}
}

// Location resolves SchedulerTimezone, falling back to UTC.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.SchedulerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseCorsOrigins splits a comma separated list. Empty means any origin.
func ParseCorsOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
