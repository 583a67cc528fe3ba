package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// ScanRequest is the raw payload posted by a biometric scanner.
type ScanRequest struct {
	CardID    string `json:"card_id" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`
	ScannerID string `json:"scanner_id"`
	Location  string `json:"location"`
}

var validate = validator.New()

// ValidateScan reports whether a scanner payload is well formed: non-empty
// card_id and timestamp, and a timestamp that parses as an ISO-8601
// datetime. It never returns an error; malformed input is simply rejected.
func ValidateScan(req ScanRequest) bool {
	if err := validate.Struct(&req); err != nil {
		return false
	}
	_, err := ParseScanTimestamp(req.Timestamp)
	return err == nil
}

// ParseScanTimestamp parses scanner timestamps. Scanners send RFC 3339
// (a trailing "Z" is an explicit UTC offset there); some firmwares omit the
// offset entirely, and the oldest ones send a bare date, read as midnight.
func ParseScanTimestamp(ts string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", ts); err == nil {
		return t, nil
	}
	return time.Parse(DateLayout, ts)
}
