package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StudentByCard returns the active student owning cardID, or nil when none.
func (r *Repository) StudentByCard(ctx context.Context, cardID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, roll_number, card_id, name, session, campus, course, year, is_active, created_at
		FROM students
		WHERE card_id = $1 AND is_active = TRUE
	`, cardID)
	var s Student
	if err := row.Scan(&s.ID, &s.RollNumber, &s.CardID, &s.Name, &s.Session, &s.Campus, &s.Course, &s.Year, &s.IsActive, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// RecordForDay returns the student's record for a calendar day, or nil.
func (r *Repository) RecordForDay(ctx context.Context, studentID int64, day string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, card_id, scan_datetime,
		       to_char(scan_date, 'YYYY-MM-DD'), to_char(scan_time, 'HH24:MI:SS'),
		       location, COALESCE(scanner_id, ''), status, created_at
		FROM attendance_records
		WHERE student_id = $1 AND scan_date = $2
	`, studentID, day)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.CardID, &rec.ScanAt, &rec.ScanDate, &rec.ScanTime,
		&rec.Location, &rec.ScannerID, &rec.Status, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// InsertRecord writes a new record. Two scanners racing on the same
// (student, day) both reach this insert; the unique constraint rejects the
// loser, surfaced as ErrDuplicateRecord.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (student_id, card_id, scan_datetime, scan_date, scan_time, location, scanner_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, rec.StudentID, rec.CardID, rec.ScanAt, rec.ScanDate, rec.ScanTime, rec.Location, rec.ScannerID, rec.Status)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Record{}, ErrDuplicateRecord
		}
		return Record{}, err
	}
	return rec, nil
}

// buildListQuery assembles the filtered join. All filters are conjunctive;
// absent fields add no clause.
func buildListQuery(f Filter) (string, []any) {
	query := `
		SELECT r.id, s.name, s.roll_number, s.session, s.campus, s.course,
		       to_char(r.scan_date, 'YYYY-MM-DD'), to_char(r.scan_time, 'HH24:MI:SS'),
		       r.location, r.status
		FROM attendance_records r
		JOIN students s ON s.id = r.student_id`
	args := []any{}
	clauses := []string{}
	if f.Session != "" {
		clauses = append(clauses, "s.session = $"+itoa(len(args)+1))
		args = append(args, f.Session)
	}
	if f.Campus != "" {
		clauses = append(clauses, "s.campus = $"+itoa(len(args)+1))
		args = append(args, f.Campus)
	}
	if f.Course != "" {
		clauses = append(clauses, "s.course = $"+itoa(len(args)+1))
		args = append(args, f.Course)
	}
	if f.DateFrom != "" {
		clauses = append(clauses, "r.scan_date >= $"+itoa(len(args)+1))
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		clauses = append(clauses, "r.scan_date <= $"+itoa(len(args)+1))
		args = append(args, f.DateTo)
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += " ORDER BY r.scan_datetime DESC LIMIT $" + itoa(len(args)+1)
	args = append(args, f.Limit)
	return query, args
}

// ListRecords returns records joined with students, newest scan first.
func (r *Repository) ListRecords(ctx context.Context, f Filter) ([]RecordRow, error) {
	if f.Limit <= 0 {
		f.Limit = 5000
	}
	query, args := buildListQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []RecordRow
	for rows.Next() {
		var row RecordRow
		if err := rows.Scan(&row.ID, &row.Name, &row.RollNumber, &row.Session, &row.Campus, &row.Course,
			&row.ScanDate, &row.ScanTime, &row.Location, &row.Status); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// ActiveStudents returns all active students ordered by name.
func (r *Repository) ActiveStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, roll_number, card_id, name, session, campus, course, year, is_active, created_at
		FROM students
		WHERE is_active = TRUE
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.RollNumber, &s.CardID, &s.Name, &s.Session, &s.Campus, &s.Course, &s.Year, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// DashboardStats returns the headline counts plus the ten most recent scans.
func (r *Repository) DashboardStats(ctx context.Context, day string) (Stats, error) {
	var stats Stats
	row := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM students WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM attendance_records WHERE scan_date = $1)
	`, day)
	if err := row.Scan(&stats.TotalStudents, &stats.TodayAttendance); err != nil {
		return Stats{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.name, s.roll_number, to_char(r.scan_datetime, 'YYYY-MM-DD HH24:MI:SS'), r.location
		FROM attendance_records r
		JOIN students s ON s.id = r.student_id
		ORDER BY r.scan_datetime DESC
		LIMIT 10
	`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var recent RecentScan
		if err := rows.Scan(&recent.Name, &recent.RollNumber, &recent.ScanTime, &recent.Location); err != nil {
			return Stats{}, err
		}
		stats.RecentAttendance = append(stats.RecentAttendance, recent)
	}
	return stats, rows.Err()
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
