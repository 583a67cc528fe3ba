package attendance

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"
)

// Scan outcomes. UnknownCard and Duplicate are expected operational results,
// not errors.
type Outcome string

const (
	OutcomeRecorded    Outcome = "recorded"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeUnknownCard Outcome = "unknown_card"
)

// ErrInvalidPayload rejects scanner input that fails shape validation.
var ErrInvalidPayload = errors.New("invalid biometric data format")

// ErrDuplicateRecord is returned by the store when the per-day uniqueness
// constraint rejects an insert.
var ErrDuplicateRecord = errors.New("attendance already recorded for this day")

// InvalidFilterError names the filter field that failed to parse.
type InvalidFilterError struct {
	Field string
}

func (e *InvalidFilterError) Error() string {
	return "invalid filter value for " + e.Field
}

// ScanResult reports what happened to a scan.
type ScanResult struct {
	Outcome      Outcome
	StudentName  string
	RollNumber   string
	ScanTime     string
	PreviousTime string
}

// Filter is a parsed, validated record filter. Empty fields impose no
// constraint.
type Filter struct {
	Session  string
	Campus   string
	Course   string
	DateFrom string
	DateTo   string
	Limit    int
}

// FilterRequest is the raw JSON filter body.
type FilterRequest struct {
	Session  string `json:"session"`
	Campus   string `json:"campus"`
	Course   string `json:"course"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// Store is the persistence surface the service needs.
type Store interface {
	StudentByCard(ctx context.Context, cardID string) (*Student, error)
	RecordForDay(ctx context.Context, studentID int64, day string) (*Record, error)
	InsertRecord(ctx context.Context, rec Record) (Record, error)
	ListRecords(ctx context.Context, f Filter) ([]RecordRow, error)
	ActiveStudents(ctx context.Context) ([]Student, error)
	DashboardStats(ctx context.Context, day string) (Stats, error)
}

// Service coordinates scan ingestion, deduplication, and filtered queries.
type Service struct {
	store           Store
	logger          *slog.Logger
	defaultLocation string
	maxRows         int
}

// NewService creates a service backed by a store.
func NewService(store Store, logger *slog.Logger, defaultLocation string, maxRows int) *Service {
	if defaultLocation == "" {
		defaultLocation = "Main Campus"
	}
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &Service{store: store, logger: logger, defaultLocation: defaultLocation, maxRows: maxRows}
}

// RecordScan validates a scanner payload and records at most one attendance
// row per student per calendar day. Only the first scan of the day counts;
// later scans come back as duplicates carrying the original time.
func (s *Service) RecordScan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	if !ValidateScan(req) {
		return ScanResult{}, ErrInvalidPayload
	}
	scanAt, _ := ParseScanTimestamp(req.Timestamp)
	day := scanAt.Format(DateLayout)
	clock := scanAt.Format(TimeLayout)

	student, err := s.store.StudentByCard(ctx, req.CardID)
	if err != nil {
		return ScanResult{}, err
	}
	if student == nil {
		s.logger.Warn("unknown card scanned", "card_id", req.CardID, "scanner_id", req.ScannerID)
		return ScanResult{Outcome: OutcomeUnknownCard}, nil
	}

	existing, err := s.store.RecordForDay(ctx, student.ID, day)
	if err != nil {
		return ScanResult{}, err
	}
	if existing != nil {
		s.logger.Info("duplicate scan", "roll_number", student.RollNumber, "scan_date", day)
		return duplicateResult(student, existing), nil
	}

	rec := Record{
		StudentID: student.ID,
		CardID:    req.CardID,
		ScanAt:    scanAt,
		ScanDate:  day,
		ScanTime:  clock,
		Location:  req.Location,
		ScannerID: req.ScannerID,
		Status:    "present",
	}
	if rec.Location == "" {
		rec.Location = s.defaultLocation
	}
	if rec.ScannerID == "" {
		rec.ScannerID = "unknown"
	}

	if _, err := s.store.InsertRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			// Lost a race with a concurrent scan for the same student and
			// day; the row that won is the one that counts.
			existing, err := s.store.RecordForDay(ctx, student.ID, day)
			if err != nil {
				return ScanResult{}, err
			}
			if existing != nil {
				s.logger.Info("duplicate scan", "roll_number", student.RollNumber, "scan_date", day)
				return duplicateResult(student, existing), nil
			}
		}
		return ScanResult{}, err
	}

	s.logger.Info("attendance recorded", "roll_number", student.RollNumber, "scan_date", day, "scan_time", clock)
	return ScanResult{
		Outcome:     OutcomeRecorded,
		StudentName: student.Name,
		RollNumber:  student.RollNumber,
		ScanTime:    clock,
	}, nil
}

func duplicateResult(student *Student, existing *Record) ScanResult {
	return ScanResult{
		Outcome:      OutcomeDuplicate,
		StudentName:  student.Name,
		RollNumber:   student.RollNumber,
		PreviousTime: existing.ScanTime,
	}
}

// ParseFilter validates a raw filter request. Date bounds must be
// YYYY-MM-DD.
func ParseFilter(req FilterRequest) (Filter, error) {
	f := Filter{
		Session: strings.TrimSpace(req.Session),
		Campus:  strings.TrimSpace(req.Campus),
		Course:  strings.TrimSpace(req.Course),
	}
	if v := strings.TrimSpace(req.DateFrom); v != "" {
		if _, err := time.Parse(DateLayout, v); err != nil {
			return Filter{}, &InvalidFilterError{Field: "date_from"}
		}
		f.DateFrom = v
	}
	if v := strings.TrimSpace(req.DateTo); v != "" {
		if _, err := time.Parse(DateLayout, v); err != nil {
			return Filter{}, &InvalidFilterError{Field: "date_to"}
		}
		f.DateTo = v
	}
	return f, nil
}

// Find returns records matching the filters, newest scan first, capped at
// the configured row limit.
func (s *Service) Find(ctx context.Context, req FilterRequest) ([]RecordRow, Filter, error) {
	f, err := ParseFilter(req)
	if err != nil {
		return nil, Filter{}, err
	}
	f.Limit = s.maxRows
	rows, err := s.store.ListRecords(ctx, f)
	if err != nil {
		return nil, Filter{}, err
	}
	return rows, f, nil
}

// Students lists active students for the management view.
func (s *Service) Students(ctx context.Context) ([]Student, error) {
	return s.store.ActiveStudents(ctx)
}

// Dashboard computes today's headline stats.
func (s *Service) Dashboard(ctx context.Context) (Stats, error) {
	day := time.Now().Format(DateLayout)
	stats, err := s.store.DashboardStats(ctx, day)
	if err != nil {
		return Stats{}, err
	}
	if stats.TotalStudents > 0 {
		pct := float64(stats.TodayAttendance) / float64(stats.TotalStudents) * 100
		stats.AttendancePercentage = math.Round(pct*10) / 10
	}
	return stats, nil
}
