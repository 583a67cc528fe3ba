// Seed loads the default admin user, sessions, and sample students. It is
// idempotent; re-running against a populated database changes nothing.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"campustrack/internal/auth"
	"campustrack/internal/config"
	"campustrack/internal/store"
)

type seedStudent struct {
	RollNumber string
	CardID     string
	Name       string
	Session    string
	Campus     string
	Course     string
	Year       int
}

var students = []seedStudent{
	{"001", "CARD001", "John Doe", "AN", "AEC", "CE", 2},
	{"002", "CARD002", "Jane Smith", "FN", "ACET", "ECE", 3},
	{"003", "CARD003", "Bob Johnson", "AN", "AEC", "MECH", 1},
	{"004", "CARD004", "Alice Brown", "FN", "ACOE", "CSE", 4},
	{"005", "CARD005", "Charlie Wilson", "AN", "ACET", "EEE", 2},
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(cfg, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete")
}

func run(cfg config.App, logger *slog.Logger) error {
	db, err := store.NewDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	hash, err := auth.HashPassword("1234")
	if err != nil {
		return err
	}
	if _, err := db.Client.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
	`, "Shanmukh", hash, "Shanmukh", "admin"); err != nil {
		return err
	}
	logger.Info("admin user ensured", "username", "Shanmukh")

	sessions := []struct {
		Name, Code, Start, End string
	}{
		{"Morning Session", "AN", "09:00:00", "12:00:00"},
		{"Afternoon Session", "FN", "13:00:00", "16:00:00"},
	}
	for _, s := range sessions {
		var exists bool
		if err := db.Client.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM attendance_sessions WHERE session_code = $1)
		`, s.Code).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := db.Client.ExecContext(ctx, `
			INSERT INTO attendance_sessions (session_name, session_code, start_time, end_time)
			VALUES ($1, $2, $3, $4)
		`, s.Name, s.Code, s.Start, s.End); err != nil {
			return err
		}
		logger.Info("session created", "code", s.Code)
	}

	for _, s := range students {
		if _, err := db.Client.ExecContext(ctx, `
			INSERT INTO students (roll_number, card_id, name, session, campus, course, year)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (card_id) DO NOTHING
		`, s.RollNumber, s.CardID, s.Name, s.Session, s.Campus, s.Course, s.Year); err != nil {
			return err
		}
	}
	logger.Info("sample students ensured", "count", len(students))

	return nil
}
