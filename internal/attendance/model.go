package attendance

import "time"

// Layouts used for derived calendar fields. The store keeps scan_date and
// scan_time as native DATE/TIME columns; Go code passes them as strings.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Student is a registered student with a biometric card.
type Student struct {
	ID         int64     `json:"id"`
	RollNumber string    `json:"roll_number"`
	CardID     string    `json:"card_id"`
	Name       string    `json:"name"`
	Session    string    `json:"session"`
	Campus     string    `json:"campus"`
	Course     string    `json:"course"`
	Year       int       `json:"year"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Record is a single stored scan. Records are written once by the ingestion
// service and never updated.
type Record struct {
	ID        int64
	StudentID int64
	CardID    string
	ScanAt    time.Time
	ScanDate  string
	ScanTime  string
	Location  string
	ScannerID string
	Status    string
	CreatedAt time.Time
}

// RecordRow is a record joined with its student, as returned by filtered
// queries and consumed by the report exporter.
type RecordRow struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	Session    string `json:"session"`
	Campus     string `json:"campus"`
	Course     string `json:"course"`
	ScanDate   string `json:"scan_date"`
	ScanTime   string `json:"scan_time"`
	Location   string `json:"location"`
	Status     string `json:"status"`
}

// Stats backs the dashboard endpoint.
type Stats struct {
	TotalStudents        int          `json:"total_students"`
	TodayAttendance      int          `json:"today_attendance"`
	AttendancePercentage float64      `json:"attendance_percentage"`
	RecentAttendance     []RecentScan `json:"recent_attendance"`
}

// RecentScan is one line of the dashboard's recent-activity feed.
type RecentScan struct {
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	ScanTime   string `json:"scan_time"`
	Location   string `json:"location"`
}
