// Package history keeps the most recent scans behind a bounded store.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/seo-optimizer/backend/analyzer"
)

// DefaultCapacity is the number of scans kept when no capacity is configured.
const DefaultCapacity = 10

// ScanRecord is one completed scan. Records are never mutated after creation.
type ScanRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	analyzer.ScanResult
}

// NewRecord wraps a scan result into a record with a fresh identifier and timestamp.
func NewRecord(url string, result analyzer.ScanResult) ScanRecord {
	result.URL = url
	return ScanRecord{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		ScanResult: result,
	}
}

// Clone returns a deep copy, so callers cannot reach into a stored record.
func (r ScanRecord) Clone() ScanRecord {
	r.ScanResult = r.ScanResult.Clone()
	return r
}
