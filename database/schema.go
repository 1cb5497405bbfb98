package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Migrate crea las tablas si no existen. El índice único parcial sobre
// (doctor_name, date, time) respalda la regla de conflicto a nivel de
// almacenamiento: nunca puede haber dos citas no canceladas en el mismo slot.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL,
			email TEXT UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			specialization TEXT,
			mfa_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			mfa_secret TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id SERIAL PRIMARY KEY,
			patient_name TEXT NOT NULL,
			doctor_name TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			queue_number INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_appointments_active_slot
			ON appointments (doctor_name, date, time)
			WHERE status IN ('pending', 'checked_in')`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			token TEXT NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_revoked BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id SERIAL PRIMARY KEY,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			response_time INTEGER,
			ip TEXT NOT NULL,
			user_agent TEXT,
			username TEXT,
			role TEXT,
			body TEXT,
			log_level TEXT NOT NULL,
			environment TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

type seedUser struct {
	username       string
	fullName       string
	password       string
	role           string
	specialization string
}

// Seed crea las cuentas iniciales: un admin, una recepcionista y los tres
// doctores de la clínica. Las cuentas existentes no se tocan.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	seeds := []seedUser{
		{"admin", "Administrator", "admin123", "admin", ""},
		{"reception", "Front Desk", "reception123", "reception", ""},
		{"neha.sharma", "Dr. Neha Sharma", "doctor123", "doctor", "General Medicine"},
		{"arjun.mehta", "Dr. Arjun Mehta", "doctor123", "doctor", "Orthopedics"},
		{"priya.iyer", "Dr. Priya Iyer", "doctor123", "doctor", "Pediatrics"},
	}

	for _, s := range seeds {
		hashed, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		var specialization *string
		if s.specialization != "" {
			specialization = &s.specialization
		}
		_, err = db.Exec(ctx,
			`INSERT INTO users (username, full_name, password, role, specialization, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (username) DO NOTHING`,
			s.username, s.fullName, string(hashed), s.role, specialization, time.Now())
		if err != nil {
			return err
		}
	}
	return nil
}
