// Package schedule assigns each user a segment-dependent number of sessions
// with start times and traffic sources.
package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/rng"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

const secondsPerDay = 24 * 60 * 60

// Scheduler draws sessions for one configuration.
type Scheduler struct {
	cfg config.SessionConfig
	end time.Time
}

// New creates a Scheduler clamping start times to the window end.
func New(cfg config.SessionConfig, window config.WindowConfig) *Scheduler {
	return &Scheduler{cfg: cfg, end: window.EndTime()}
}

// Schedule draws sessions for every user in id order, then downsamples
// when the total overshoots the target.
func (s *Scheduler) Schedule(src rng.Source, users []types.User) []types.Session {
	sessions := make([]types.Session, 0, 2*len(users))
	for _, u := range users {
		sessions = append(sessions, s.ForUser(src, u)...)
	}
	return s.Downsample(src, sessions)
}

// Rate returns the Poisson rate for a user's segment.
func (s *Scheduler) Rate(u types.User) float64 {
	if u.IsBot {
		return s.cfg.BotRate
	}
	return s.cfg.TierRates[u.LoyaltyTier]
}

// ForUser draws Poisson(rate)+floor sessions for u. Per session the draws are
// start offset, source, then the session id.
func (s *Scheduler) ForUser(src rng.Source, u types.User) []types.Session {
	n := rng.Poisson(src, s.Rate(u)) + s.cfg.Floor
	ids := rng.NewReader(src)

	sessions := make([]types.Session, n)
	for i := range sessions {
		offset := time.Duration(rng.Exponential(src, s.cfg.OffsetMeanDays)*secondsPerDay) * time.Second
		start := u.SignupDate.Add(offset)
		if start.After(s.end) {
			start = s.end
		}

		source := s.drawSource(src)
		id, _ := uuid.NewRandomFromReader(ids)

		sessions[i] = types.Session{
			SessionID: id.String(),
			UserID:    u.UserID,
			StartTime: start,
			Source:    source,
		}
	}
	return sessions
}

// drawSource first tests for paid traffic; otherwise it draws from the
// remaining sources, renormalized.
func (s *Scheduler) drawSource(src rng.Source) types.Source {
	if rng.Bernoulli(src, s.cfg.SourceWeights[types.SourcePaid]) {
		return types.SourcePaid
	}
	rest := make(map[types.Source]float64, len(s.cfg.SourceWeights))
	for k, w := range s.cfg.SourceWeights {
		if k != types.SourcePaid {
			rest[k] = w
		}
	}
	if len(rest) == 0 {
		return types.SourcePaid
	}
	return rng.Pick(src, types.Sources(), rest)
}

// Downsample keeps DownsampleTo × Target sessions, chosen without
// replacement, when the total exceeds DownsampleTrigger × Target. Kept
// sessions stay in their original order and are otherwise untouched.
func (s *Scheduler) Downsample(src rng.Source, sessions []types.Session) []types.Session {
	target := float64(s.cfg.Target)
	if float64(len(sessions)) <= s.cfg.DownsampleTrigger*target {
		return sessions
	}

	keep := rng.SampleIndices(src, len(sessions), int(s.cfg.DownsampleTo*target))
	sort.Ints(keep)

	out := make([]types.Session, len(keep))
	for i, idx := range keep {
		out[i] = sessions[idx]
	}
	return out
}
