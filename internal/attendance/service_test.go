package attendance

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps students and records in memory, enforcing the per-day
// uniqueness constraint the way Postgres does.
type fakeStore struct {
	students    []Student
	records     []Record
	nextID      int64
	insertRaces int // when >0, InsertRecord fails as if another writer won
}

func (f *fakeStore) StudentByCard(_ context.Context, cardID string) (*Student, error) {
	for i := range f.students {
		if f.students[i].CardID == cardID && f.students[i].IsActive {
			s := f.students[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) RecordForDay(_ context.Context, studentID int64, day string) (*Record, error) {
	for i := range f.records {
		if f.records[i].StudentID == studentID && f.records[i].ScanDate == day {
			r := f.records[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertRecord(_ context.Context, rec Record) (Record, error) {
	if f.insertRaces > 0 {
		f.insertRaces--
		f.records = append(f.records, Record{
			ID: 999, StudentID: rec.StudentID, ScanDate: rec.ScanDate,
			ScanTime: "09:00:00", Status: "present",
		})
		return Record{}, ErrDuplicateRecord
	}
	for i := range f.records {
		if f.records[i].StudentID == rec.StudentID && f.records[i].ScanDate == rec.ScanDate {
			return Record{}, ErrDuplicateRecord
		}
	}
	f.nextID++
	rec.ID = f.nextID
	rec.CreatedAt = time.Now()
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeStore) ListRecords(_ context.Context, flt Filter) ([]RecordRow, error) {
	var res []RecordRow
	for _, rec := range f.records {
		var st *Student
		for i := range f.students {
			if f.students[i].ID == rec.StudentID {
				st = &f.students[i]
			}
		}
		if st == nil {
			continue
		}
		if flt.Session != "" && st.Session != flt.Session {
			continue
		}
		if flt.Campus != "" && st.Campus != flt.Campus {
			continue
		}
		if flt.Course != "" && st.Course != flt.Course {
			continue
		}
		if flt.DateFrom != "" && rec.ScanDate < flt.DateFrom {
			continue
		}
		if flt.DateTo != "" && rec.ScanDate > flt.DateTo {
			continue
		}
		res = append(res, RecordRow{
			ID: rec.ID, Name: st.Name, RollNumber: st.RollNumber,
			Session: st.Session, Campus: st.Campus, Course: st.Course,
			ScanDate: rec.ScanDate, ScanTime: rec.ScanTime,
			Location: rec.Location, Status: rec.Status,
		})
	}
	return res, nil
}

func (f *fakeStore) ActiveStudents(_ context.Context) ([]Student, error) {
	var res []Student
	for _, s := range f.students {
		if s.IsActive {
			res = append(res, s)
		}
	}
	return res, nil
}

func (f *fakeStore) DashboardStats(_ context.Context, day string) (Stats, error) {
	var stats Stats
	for _, s := range f.students {
		if s.IsActive {
			stats.TotalStudents++
		}
	}
	for _, r := range f.records {
		if r.ScanDate == day {
			stats.TodayAttendance++
		}
	}
	return stats, nil
}

func newTestService(store *fakeStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, logger, "Main Campus", 5000)
}

func seededStore() *fakeStore {
	return &fakeStore{
		students: []Student{
			{ID: 1, RollNumber: "001", CardID: "CARD001", Name: "John Doe", Session: "AN", Campus: "AEC", Course: "CE", Year: 1, IsActive: true},
			{ID: 2, RollNumber: "002", CardID: "CARD002", Name: "Jane Smith", Session: "AN", Campus: "AEC", Course: "EEE", Year: 1, IsActive: true},
			{ID: 3, RollNumber: "003", CardID: "CARD003", Name: "Alice Johnson", Session: "FN", Campus: "ACET", Course: "CSE", Year: 1, IsActive: false},
		},
	}
}

func TestRecordScan_Recorded(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)

	res, err := svc.RecordScan(context.Background(), ScanRequest{
		CardID: "CARD001", Timestamp: "2024-01-15T09:05:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeRecorded, res.Outcome)
	assert.Equal(t, "John Doe", res.StudentName)
	assert.Equal(t, "001", res.RollNumber)
	assert.Equal(t, "09:05:00", res.ScanTime)
	require.Len(t, store.records, 1)
	assert.Equal(t, "present", store.records[0].Status)
	assert.Equal(t, "Main Campus", store.records[0].Location)
	assert.Equal(t, "unknown", store.records[0].ScannerID)
}

func TestRecordScan_SuppliedLocationAndScanner(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)

	_, err := svc.RecordScan(context.Background(), ScanRequest{
		CardID: "CARD002", Timestamp: "2024-01-15T08:30:00Z",
		ScannerID: "GATE-2", Location: "Library Block",
	})
	require.NoError(t, err)
	require.Len(t, store.records, 1)
	assert.Equal(t, "Library Block", store.records[0].Location)
	assert.Equal(t, "GATE-2", store.records[0].ScannerID)
}

func TestRecordScan_DuplicateSameDay(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.RecordScan(ctx, ScanRequest{CardID: "CARD001", Timestamp: "2024-01-15T09:05:00Z"})
	require.NoError(t, err)
	require.Equal(t, OutcomeRecorded, first.Outcome)

	second, err := svc.RecordScan(ctx, ScanRequest{CardID: "CARD001", Timestamp: "2024-01-15T14:00:00Z"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Equal(t, "John Doe", second.StudentName)
	assert.Equal(t, "09:05:00", second.PreviousTime, "original time must be preserved")
	assert.Len(t, store.records, 1, "second scan must not add a row")
}

func TestRecordScan_Idempotent(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)
	ctx := context.Background()

	duplicates := 0
	for i := 0; i < 5; i++ {
		res, err := svc.RecordScan(ctx, ScanRequest{CardID: "CARD001", Timestamp: "2024-01-15T09:05:00Z"})
		require.NoError(t, err)
		if res.Outcome == OutcomeDuplicate {
			duplicates++
		}
	}
	assert.Equal(t, 4, duplicates)
	assert.Len(t, store.records, 1)
}

func TestRecordScan_NextDayRecordsAgain(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.RecordScan(ctx, ScanRequest{CardID: "CARD001", Timestamp: "2024-01-15T09:05:00Z"})
	require.NoError(t, err)

	res, err := svc.RecordScan(ctx, ScanRequest{CardID: "CARD001", Timestamp: "2024-01-16T09:02:00Z"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeRecorded, res.Outcome)
	assert.Len(t, store.records, 2)
}

func TestRecordScan_UnknownCard(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)

	res, err := svc.RecordScan(context.Background(), ScanRequest{CardID: "CARDXYZ", Timestamp: "2024-01-15T09:05:00Z"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnknownCard, res.Outcome)
	assert.Empty(t, store.records)
}

func TestRecordScan_InactiveStudentIsUnknown(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)

	res, err := svc.RecordScan(context.Background(), ScanRequest{CardID: "CARD003", Timestamp: "2024-01-15T09:05:00Z"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnknownCard, res.Outcome)
	assert.Empty(t, store.records)
}

func TestRecordScan_InvalidPayload(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)

	_, err := svc.RecordScan(context.Background(), ScanRequest{CardID: "CARD001", Timestamp: "yesterday"})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, store.records)
}

func TestRecordScan_RaceConvertsToDuplicate(t *testing.T) {
	store := seededStore()
	store.insertRaces = 1
	svc := newTestService(store)

	res, err := svc.RecordScan(context.Background(), ScanRequest{CardID: "CARD001", Timestamp: "2024-01-15T09:05:00Z"})
	require.NoError(t, err, "a lost insert race must not surface as an error")

	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, "09:00:00", res.PreviousTime)
	assert.Len(t, store.records, 1)
}

func TestFind_MonotonicNarrowing(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.RecordScan(ctx, ScanRequest{CardID: "CARD001", Timestamp: "2024-01-15T09:05:00Z"})
	require.NoError(t, err)
	_, err = svc.RecordScan(ctx, ScanRequest{CardID: "CARD002", Timestamp: "2024-01-15T09:10:00Z"})
	require.NoError(t, err)

	broad, _, err := svc.Find(ctx, FilterRequest{Session: "AN"})
	require.NoError(t, err)
	narrow, _, err := svc.Find(ctx, FilterRequest{Session: "AN", Course: "CE"})
	require.NoError(t, err)

	assert.Len(t, broad, 2)
	assert.Len(t, narrow, 1)
	assert.LessOrEqual(t, len(narrow), len(broad))
}

func TestFind_DateRangeNoMatches(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.RecordScan(ctx, ScanRequest{CardID: "CARD001", Timestamp: "2024-02-10T09:05:00Z"})
	require.NoError(t, err)

	rows, _, err := svc.Find(ctx, FilterRequest{DateFrom: "2024-01-01", DateTo: "2024-01-31"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseFilter_InvalidDates(t *testing.T) {
	_, err := ParseFilter(FilterRequest{DateFrom: "15-01-2024"})
	var invalid *InvalidFilterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "date_from", invalid.Field)

	_, err = ParseFilter(FilterRequest{DateTo: "soon"})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "date_to", invalid.Field)
}

func TestParseFilter_TrimsWhitespace(t *testing.T) {
	f, err := ParseFilter(FilterRequest{Session: " AN ", Campus: "AEC", DateFrom: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "AN", f.Session)
	assert.Equal(t, "AEC", f.Campus)
	assert.Equal(t, "2024-01-01", f.DateFrom)
}

func TestDashboard_Percentage(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)
	ctx := context.Background()

	today := time.Now().Format(DateLayout)
	_, err := svc.RecordScan(ctx, ScanRequest{CardID: "CARD001", Timestamp: today + "T09:05:00Z"})
	require.NoError(t, err)

	stats, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalStudents, "inactive students excluded")
	assert.Equal(t, 1, stats.TodayAttendance)
	assert.Equal(t, 50.0, stats.AttendancePercentage)
}
