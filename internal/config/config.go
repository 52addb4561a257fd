/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"transaction-ledger-go/internal/models"
)

type durationSetting struct {
	key          string
	defaultValue time.Duration
	target       *time.Duration
}

func Load() (*models.Config, error) {
	var cfg models.Config

	durations := []durationSetting{
		{"DB_CONN_MAX_LIFETIME", 5 * time.Minute, &cfg.Database.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", 30 * time.Second, &cfg.Database.ConnMaxIdleTime},
		{"DB_PING_TIMEOUT", 5 * time.Second, &cfg.Database.PingTimeout},
		{"DB_QUERY_TIMEOUT", 5 * time.Second, &cfg.Database.QueryTimeout},
		{"DB_BUSY_TIMEOUT", 5 * time.Second, &cfg.Database.BusyTimeout},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.Server.ReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 10 * time.Second, &cfg.Server.WriteTimeout},
		{"HTTP_IDLE_TIMEOUT", 60 * time.Second, &cfg.Server.IdleTimeout},
		{"HTTP_SHUTDOWN_TIMEOUT", 30 * time.Second, &cfg.Server.ShutdownTimeout},
		{"PENDING_EXPIRY_TTL", 24 * time.Hour, &cfg.Settlement.ExpiryTTL},
	}
	for _, d := range durations {
		value, err := getEnvDuration(d.key, d.defaultValue)
		if err != nil {
			return nil, err
		}
		*d.target = value
	}

	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.Database.Driver = getEnvString("DB_DRIVER", "sqlite3")
	cfg.Database.Path = getEnvString("DATABASE_PATH", "transactions.db")
	cfg.Database.URL = getEnvString("DATABASE_URL", "")
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)

	cfg.Server.Addr = getEnvString("HTTP_ADDR", ":8080")
	cfg.Server.EnableH2C = getEnvBool("HTTP_ENABLE_H2C", false)
	cfg.Server.JWTSecret = getEnvString("JWT_SECRET", "")

	cfg.Ledger.CurrenciesFile = getEnvString("CURRENCIES_FILE", "")

	cfg.Events.NatsURL = getEnvString("NATS_URL", "")
	cfg.Events.SubjectPrefix = getEnvString("NATS_SUBJECT_PREFIX", "transactions")

	cfg.Settlement.ExpiryEnabled = getEnvBool("PENDING_EXPIRY_ENABLED", false)
	cfg.Settlement.ExpirySchedule = getEnvString("PENDING_EXPIRY_SCHEDULE", "@every 5m")
	cfg.Settlement.ExpiryBatch = getEnvInt("PENDING_EXPIRY_BATCH", 100)

	return &cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
