package report

import (
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/audit"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/funnel"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/generator"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/noise"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// FromDataset rebuilds the run tallies a persisted dataset still supports.
// Stage reach is recovered by grouping on session_id, so it carries the
// noise. The duplicate count cannot be recovered and stays zero.
func FromDataset(ds types.Dataset) *generator.Result {
	res := &generator.Result{
		Dataset: ds,
		States:  make(map[funnel.State]int),
	}

	order, groups := audit.Sessions(ds.Events)
	for _, key := range order {
		furthest := types.EventVisit
		for _, e := range groups[key] {
			if e.EventType > furthest {
				furthest = e.EventType
			}
		}
		res.States[funnel.StateVisited+funnel.State(furthest)]++
	}

	missing := 0
	for _, e := range ds.Events {
		if e.SessionID == nil {
			missing++
		}
	}
	res.Noise = noise.Report{Total: len(ds.Events), Missing: missing}
	return res
}
