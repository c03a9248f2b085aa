package bucketize

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/pkg/types"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		text    string
		want    types.Interval
		wantErr bool
	}{
		{"1 hour", types.Interval{Count: 1, Unit: types.IntervalHour}, false},
		{"24 HOURS", types.Interval{Count: 24, Unit: types.IntervalHour}, false},
		{"7 day", types.Interval{Count: 7, Unit: types.IntervalDay}, false},
		{"1 Days", types.Interval{Count: 1, Unit: types.IntervalDay}, false},
		{"  3   hour  ", types.Interval{Count: 3, Unit: types.IntervalHour}, false},
		{"0 hour", types.Interval{}, true},
		{"-1 hour", types.Interval{}, true},
		{"1 week", types.Interval{}, true},
		{"hour", types.Interval{}, true},
		{"", types.Interval{}, true},
	}

	for _, tc := range cases {
		got, err := ParseInterval(tc.text)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseInterval(%q): expected error, got %+v", tc.text, got)
			} else if perr.KindOf(err) != perr.KindInvalidInterval {
				t.Errorf("ParseInterval(%q): expected KindInvalidInterval, got %v", tc.text, perr.KindOf(err))
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseInterval(%q): unexpected error %v", tc.text, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseInterval(%q) = %+v, want %+v", tc.text, got, tc.want)
		}
	}
}

func TestBucketize_KnownValues(t *testing.T) {
	iv := types.Interval{Count: 1, Unit: types.IntervalHour}
	cases := []struct {
		ts   int64
		want int64
	}{
		{0, 0},
		{3599, 0},
		{3600, 3600},
		{-1, -3600},
		{-3600, -3600},
		{-3601, -7200},
	}
	for _, tc := range cases {
		if got := Bucketize(tc.ts, iv); got != tc.want {
			t.Errorf("Bucketize(%d, 1h) = %d, want %d", tc.ts, got, tc.want)
		}
	}
}

func TestNextBucket(t *testing.T) {
	iv := types.Interval{Count: 1, Unit: types.IntervalDay}
	if got := NextBucket(0, iv); got != 86400 {
		t.Errorf("NextBucket(0, 1d) = %d, want 86400", got)
	}
}

func TestFormatPartitionName(t *testing.T) {
	if got := FormatPartitionName("events", 3600); got != "events_3600" {
		t.Errorf("FormatPartitionName = %q, want events_3600", got)
	}
}

// TestProperty_BucketAlignment validates spec.md §8 P1: bucketize(t, iv) is
// bucket-aligned and t falls within [bucket, bucket+iv.seconds).
func TestProperty_BucketAlignment(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("bucketize result is aligned and contains t", prop.ForAll(
		func(count uint32, ts int64) bool {
			if count == 0 {
				count = 1
			}
			iv := types.Interval{Count: count % 1000, Unit: types.IntervalHour}
			if iv.Count == 0 {
				iv.Count = 1
			}
			b := Bucketize(ts, iv)
			seconds := iv.Seconds()
			if b%seconds != 0 {
				return false
			}
			return b <= ts && ts < b+seconds
		},
		gen.UInt32(),
		gen.Int64Range(-1_000_000_000, 1_000_000_000),
	))

	properties.TestingRun(t)
}

// TestProperty_BucketizeIdempotent validates spec.md §8 P2:
// bucketize(bucketize(t, iv), iv) == bucketize(t, iv).
func TestProperty_BucketizeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("bucketize is idempotent", prop.ForAll(
		func(count uint32, ts int64) bool {
			if count == 0 {
				count = 1
			}
			iv := types.Interval{Count: count%1000 + 1, Unit: types.IntervalDay}
			b := Bucketize(ts, iv)
			return Bucketize(b, iv) == b
		},
		gen.UInt32(),
		gen.Int64Range(-1_000_000_000, 1_000_000_000),
	))

	properties.TestingRun(t)
}
