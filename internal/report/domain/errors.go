package report

import "errors"

var (
	// ErrInvalidGranularity is returned when granularity is not daily or monthly.
	ErrInvalidGranularity = errors.New("report: invalid granularity")
	// ErrInvalidMonth is returned when a daily period has no month in 1..12.
	ErrInvalidMonth = errors.New("report: invalid month")
	// ErrEmptySubject is returned when a report is requested without a meter or site.
	ErrEmptySubject = errors.New("report: empty subject")
	// ErrInvalidYear is returned when the period year is not positive.
	ErrInvalidYear = errors.New("report: invalid year")
	// ErrNegativeSample is returned when a source yields a negative units value.
	ErrNegativeSample = errors.New("report: negative sample")
	// ErrInvalidSample is returned when a source yields NaN or an infinite units value.
	ErrInvalidSample = errors.New("report: non-finite sample")
	// ErrInvalidRate is returned when the conversion rate is negative or not finite.
	ErrInvalidRate = errors.New("report: invalid rate")
)
