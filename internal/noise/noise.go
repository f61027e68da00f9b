// Package noise corrupts session ids on a bounded fraction of events to
// model pipeline data-quality defects. No other field is ever touched.
package noise

import (
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/rng"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// maxDonorAttempts bounds the search for a donor from a different session.
const maxDonorAttempts = 64

// Report summarizes what Apply changed.
type Report struct {
	Total      int `json:"total"`
	Missing    int `json:"missing"`
	Duplicated int `json:"duplicated"`
}

// MissingRate is the fraction of events whose session id was dropped.
func (r Report) MissingRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Missing) / float64(r.Total)
}

// DuplicateRate is the fraction of events given another session's id.
func (r Report) DuplicateRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Duplicated) / float64(r.Total)
}

// Injector applies both corruption passes.
type Injector struct {
	missing   float64
	duplicate float64
}

// New creates an Injector with rates expressed over all events.
func New(cfg config.NoiseConfig) *Injector {
	return &Injector{missing: cfg.Missing, duplicate: cfg.Duplicate}
}

// Apply corrupts events in place.
//
// Pass one drops the session id of each event with probability missing.
// Pass two only considers the survivors and selects each with probability
// duplicate/(1-missing), so both final rates match their targets over the
// whole collection. Every selected event takes the session id of a donor
// drawn from events that were neither dropped nor selected, retrying until
// the donor belongs to a different session.
func (n *Injector) Apply(src rng.Source, events []types.Event) Report {
	report := Report{Total: len(events)}
	if len(events) == 0 {
		return report
	}

	missing := make([]bool, len(events))
	for i := range events {
		if rng.Bernoulli(src, n.missing) {
			missing[i] = true
			events[i].SessionID = nil
			report.Missing++
		}
	}

	if n.duplicate <= 0 {
		return report
	}
	pDup := n.duplicate / (1 - n.missing)

	var selected, pool []int
	for i := range events {
		if missing[i] {
			continue
		}
		if rng.Bernoulli(src, pDup) {
			selected = append(selected, i)
		} else {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		return report
	}

	for _, i := range selected {
		target := events[i].SessionKey()
		for attempt := 0; attempt < maxDonorAttempts; attempt++ {
			donor := events[pool[src.IntN(len(pool))]].SessionKey()
			if donor != target {
				events[i].SessionID = &donor
				report.Duplicated++
				break
			}
		}
	}
	return report
}
