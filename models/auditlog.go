package models

import (
	"time"
)

// AuditLog representa la tabla audit_logs en la base de datos
type AuditLog struct {
	ID           int       `json:"id" db:"id"`
	Method       string    `json:"method" db:"method"`
	Path         string    `json:"path" db:"path"`
	StatusCode   int       `json:"status_code" db:"status_code"`
	ResponseTime *int      `json:"response_time,omitempty" db:"response_time"`
	IP           string    `json:"ip" db:"ip"`
	UserAgent    *string   `json:"user_agent,omitempty" db:"user_agent"`
	Username     *string   `json:"username,omitempty" db:"username"`
	Role         *string   `json:"role,omitempty" db:"role"`
	Body         *string   `json:"body,omitempty" db:"body"`
	LogLevel     string    `json:"log_level" db:"log_level"`
	Environment  string    `json:"environment" db:"environment"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Constantes para niveles de log
const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
	LogLevelSuccess = "success"
)

// Constantes para ambientes
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)
