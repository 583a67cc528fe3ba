package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery_NoFilters(t *testing.T) {
	query, args := buildListQuery(Filter{Limit: 5000})

	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY r.scan_datetime DESC")
	assert.Contains(t, query, "LIMIT $1")
	assert.Equal(t, []any{5000}, args)
}

func TestBuildListQuery_AllFilters(t *testing.T) {
	query, args := buildListQuery(Filter{
		Session:  "AN",
		Campus:   "AEC",
		Course:   "CE",
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-31",
		Limit:    100,
	})

	assert.Contains(t, query, "s.session = $1")
	assert.Contains(t, query, "s.campus = $2")
	assert.Contains(t, query, "s.course = $3")
	assert.Contains(t, query, "r.scan_date >= $4")
	assert.Contains(t, query, "r.scan_date <= $5")
	assert.Contains(t, query, "LIMIT $6")
	assert.Equal(t, []any{"AN", "AEC", "CE", "2024-01-01", "2024-01-31", 100}, args)
}

func TestBuildListQuery_SkipsEmptyFields(t *testing.T) {
	query, args := buildListQuery(Filter{Campus: "ACET", Limit: 50})

	assert.Contains(t, query, "s.campus = $1")
	assert.NotContains(t, query, "s.session")
	assert.NotContains(t, query, "s.course")
	assert.NotContains(t, query, "scan_date >=")
	assert.Equal(t, []any{"ACET", 50}, args)
}

func TestBuildListQuery_ConjunctiveClauses(t *testing.T) {
	query, _ := buildListQuery(Filter{Session: "FN", Course: "CSE", Limit: 10})

	assert.Contains(t, query, "s.session = $1 AND s.course = $2")
}
