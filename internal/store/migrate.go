package store

import (
	"context"
	"fmt"
)

type migration struct {
	Description string
	Query       string
}

var schema = []migration{
	{
		Description: "create table: users",
		Query: `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'manager',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		Description: "create table: students",
		Query: `
		CREATE TABLE IF NOT EXISTS students (
			id SERIAL PRIMARY KEY,
			roll_number TEXT NOT NULL UNIQUE,
			card_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			session TEXT NOT NULL,
			campus TEXT NOT NULL,
			course TEXT NOT NULL,
			year INT NOT NULL DEFAULT 1,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		Description: "create table: attendance_sessions",
		Query: `
		CREATE TABLE IF NOT EXISTS attendance_sessions (
			id SERIAL PRIMARY KEY,
			session_name TEXT NOT NULL,
			session_code TEXT NOT NULL,
			start_time TIME NOT NULL,
			end_time TIME NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		Description: "create table: attendance_records",
		Query: `
		CREATE TABLE IF NOT EXISTS attendance_records (
			id SERIAL PRIMARY KEY,
			student_id INT NOT NULL REFERENCES students(id),
			card_id TEXT NOT NULL,
			scan_datetime TIMESTAMPTZ NOT NULL,
			scan_date DATE NOT NULL,
			scan_time TIME NOT NULL,
			location TEXT NOT NULL DEFAULT 'Main Campus',
			scanner_id TEXT,
			status TEXT NOT NULL DEFAULT 'present',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT unique_student_daily_attendance UNIQUE (student_id, scan_date)
		);`,
	},
	{
		Description: "index attendance_records by scan_date",
		Query: `
		CREATE INDEX IF NOT EXISTS idx_attendance_records_scan_date
			ON attendance_records (scan_date);`,
	},
}

// Migrate applies the schema. Statements are idempotent so re-running on
// startup is safe.
func (d *DB) Migrate(ctx context.Context) error {
	for _, m := range schema {
		if _, err := d.Client.ExecContext(ctx, m.Query); err != nil {
			return fmt.Errorf("migrate %q: %w", m.Description, err)
		}
	}
	return nil
}
