package casereview

import (
	"time"

	"github.com/turtacn/CaseLens/internal/domain/review"
)

// Settings carries the tunables of the review pipeline. Zero fields select
// the domain defaults.
type Settings struct {
	Currency           string
	ExposureThreshold  float64
	Location           *time.Location
	MetaKVCap          int
	MetaLargeThreshold int
}

// Normalizer builds the group normalizer.
func (s Settings) Normalizer() review.Normalizer {
	return review.NewNormalizer(s.Currency, s.ExposureThreshold)
}

// Deriver builds the timeline deriver.
func (s Settings) Deriver() review.Deriver {
	return review.NewDeriver(s.Currency, s.ExposureThreshold)
}

// FeedBuilder builds the audit feed enricher.
func (s Settings) FeedBuilder() review.FeedBuilder {
	return review.FeedBuilder{
		Location:       s.Location,
		KVCap:          s.MetaKVCap,
		LargeThreshold: s.MetaLargeThreshold,
	}
}
