// Package types holds value types shared across the partitioner packages:
// the interval unit, column declarations, and the ordered schema they form.
package types

import "fmt"

// IntervalUnit is the unit a partitioning interval is expressed in.
type IntervalUnit string

const (
	IntervalHour IntervalUnit = "hour"
	IntervalDay  IntervalUnit = "day"
)

// Interval is an immutable partitioning window: count multiplied by unit.
type Interval struct {
	Count uint32
	Unit  IntervalUnit
}

// Seconds returns the interval length in seconds.
func (iv Interval) Seconds() int64 {
	switch iv.Unit {
	case IntervalHour:
		return int64(iv.Count) * 3600
	case IntervalDay:
		return int64(iv.Count) * 86400
	default:
		return 0
	}
}

// String renders the interval the way it was declared, e.g. "1 hour".
func (iv Interval) String() string {
	return fmt.Sprintf("%d %s", iv.Count, iv.Unit)
}

// Valid reports whether the interval is strictly positive and well-formed.
func (iv Interval) Valid() bool {
	return iv.Count > 0 && (iv.Unit == IntervalHour || iv.Unit == IntervalDay) && iv.Seconds() > 0
}
