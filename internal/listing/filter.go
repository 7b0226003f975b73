package listing

import (
	"time"

	"github.com/samber/lo"
)

// Between keeps the records whose timestamp lies in [start, end], preserving order
func Between(records []FileRecord, start, end time.Time) []FileRecord {
	return lo.Filter(records, func(r FileRecord, _ int) bool {
		return !r.Timestamp.Before(start) && !r.Timestamp.After(end)
	})
}

// LastDays keeps the records from the last days before now.
// A non-positive days value disables filtering.
func LastDays(records []FileRecord, days int, now time.Time) []FileRecord {
	if days <= 0 {
		return records
	}
	return Between(records, now.AddDate(0, 0, -days), now)
}

// TotalSize sums the advertised sizes of the records
func TotalSize(records []FileRecord) uint64 {
	return lo.SumBy(records, func(r FileRecord) uint64 {
		if r.Size < 0 {
			return 0
		}
		return uint64(r.Size)
	})
}
