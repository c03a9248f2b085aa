// Package bucketize parses partitioning interval declarations and maps
// epoch-second timestamps onto their bucket-start epoch.
package bucketize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/pkg/types"
)

// ParseInterval parses "<n> hour" or "<n> day" (case-insensitive, plural
// tolerated, extra whitespace ignored) into a types.Interval.
func ParseInterval(text string) (types.Interval, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return types.Interval{}, perr.New(perr.KindInvalidInterval, "expected \"<n> hour\" or \"<n> day\", got %q", text)
	}

	n, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil || n == 0 {
		return types.Interval{}, perr.New(perr.KindInvalidInterval, "interval count must be a positive 32-bit integer, got %q", fields[0])
	}

	unit := strings.TrimSuffix(strings.ToLower(fields[1]), "s")
	var iv types.Interval
	switch unit {
	case "hour":
		iv = types.Interval{Count: uint32(n), Unit: types.IntervalHour}
	case "day":
		iv = types.Interval{Count: uint32(n), Unit: types.IntervalDay}
	default:
		return types.Interval{}, perr.New(perr.KindInvalidInterval, "unsupported interval unit %q (want hour or day)", fields[1])
	}

	if !iv.Valid() {
		return types.Interval{}, perr.New(perr.KindInvalidInterval, "interval %q is not valid", text)
	}
	return iv, nil
}

// Bucketize returns the bucket-start epoch containing tsEpoch: the largest
// multiple of iv.Seconds() that is <= tsEpoch, using floor-division
// semantics so negative timestamps still round toward negative infinity.
func Bucketize(tsEpoch int64, iv types.Interval) int64 {
	s := iv.Seconds()
	if s <= 0 {
		return tsEpoch
	}
	r := tsEpoch % s
	if r < 0 {
		r += s
	}
	return tsEpoch - r
}

// NextBucket returns the start of the bucket immediately following b,
// saturating at math.MaxInt64 rather than overflowing.
func NextBucket(b int64, iv types.Interval) int64 {
	s := iv.Seconds()
	const maxI64 = int64(1<<63 - 1)
	if s > 0 && b > maxI64-s {
		return maxI64
	}
	return b + s
}

// CheckTimestampRange validates that ts fits a signed 64-bit epoch and that
// ts + iv.Seconds() does not overflow, as required on the insert path
// (spec.md §4.1: "in insert path, reject with TimestampOutOfRange").
func CheckTimestampRange(ts int64, iv types.Interval) error {
	s := iv.Seconds()
	const maxI64 = int64(1<<63 - 1)
	if s > 0 && ts > maxI64-s {
		return perr.New(perr.KindTimestampOutOfRange, "timestamp %d overflows with interval %s", ts, iv)
	}
	return nil
}

// FormatPartitionName builds the physical table name for a bucket, per
// spec.md §6: "{base}_{bucket_epoch_seconds}".
func FormatPartitionName(baseName string, bucket int64) string {
	return fmt.Sprintf("%s_%d", baseName, bucket)
}
