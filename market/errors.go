package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrDataQuality is matched by every *DataQualityError.
var ErrDataQuality = errors.New("data quality")

// DataQualityError reports a bar that cannot be replayed.
type DataQualityError struct {
	Index  int
	Time   time.Time
	Reason string
}

func (e *DataQualityError) Error() string {
	if e.Time.IsZero() {
		return fmt.Sprintf("data quality: bar %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("data quality: bar %d (%s): %s", e.Index, e.Time.Format(time.RFC3339), e.Reason)
}

func (e *DataQualityError) Is(target error) bool {
	return target == ErrDataQuality
}
