package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Ledger     LedgerConfig
	Events     EventsConfig
	Settlement SettlementConfig
	LogLevel   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // "sqlite3" or "postgres"
	Path            string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	QueryTimeout    time.Duration
	BusyTimeout     time.Duration
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	EnableH2C       bool
	JWTSecret       string
}

// LedgerConfig holds transaction validation policy
type LedgerConfig struct {
	CurrenciesFile string
}

// EventsConfig holds lifecycle event publishing settings
type EventsConfig struct {
	NatsURL       string
	SubjectPrefix string
}

// SettlementConfig holds the stale pending expiry sweep settings
type SettlementConfig struct {
	ExpiryEnabled  bool
	ExpiryTTL      time.Duration
	ExpirySchedule string
	ExpiryBatch    int
}
