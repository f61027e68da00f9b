// Package population builds the synthetic user universe: independent
// per-user attributes plus a loyalty segmentation derived from signup order.
package population

import (
	"math"
	"sort"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/rng"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// Generator draws users for one configuration.
type Generator struct {
	cfg   config.PopulationConfig
	start time.Time
	days  int
}

// New creates a Generator over the given window.
func New(cfg config.PopulationConfig, window config.WindowConfig) *Generator {
	return &Generator{
		cfg:   cfg,
		start: window.StartTime(),
		days:  window.Days(),
	}
}

// Generate produces cfg.Users users with dense ids 1..N from a single stream.
// Draw order: per user (signup, device, country[, bot]), then exact bot
// selection, then loyalty assignment (no draws).
func (g *Generator) Generate(src rng.Source) []types.User {
	users := make([]types.User, g.cfg.Users)
	for i := range users {
		users[i] = g.Draw(src, int64(i+1))
	}
	g.SelectBots(src, users)
	AssignLoyalty(users, g.cfg.PlatinumShare, g.cfg.GoldShare, g.cfg.SilverShare)
	return users
}

// Draw samples the independent attributes of one user. Under bernoulli bot
// selection the bot flag is drawn here too; loyalty is left unset.
func (g *Generator) Draw(src rng.Source, id int64) types.User {
	offset := int(rng.Beta(src, g.cfg.SignupAlpha, g.cfg.SignupBeta) * float64(g.days))

	u := types.User{
		UserID:     id,
		SignupDate: g.start.AddDate(0, 0, offset),
		Device:     rng.Pick(src, types.Devices(), g.cfg.DeviceWeights),
		Country:    rng.Pick(src, types.Countries(), g.cfg.CountryWeights),
		ABVariant:  types.VariantFor(id),
	}
	if g.cfg.BotSelection == config.BotSelectionBernoulli {
		u.IsBot = rng.Bernoulli(src, g.cfg.BotFraction)
	}
	return u
}

// SelectBots flags exactly BotCount users, chosen without replacement.
// It is a no-op under bernoulli selection.
func (g *Generator) SelectBots(src rng.Source, users []types.User) {
	if g.cfg.BotSelection != config.BotSelectionExact {
		return
	}
	for _, i := range rng.SampleIndices(src, len(users), BotCount(len(users), g.cfg.BotFraction)) {
		users[i].IsBot = true
	}
}

// BotCount is floor(n × fraction). The epsilon absorbs products such as
// 100 × 0.29 landing just below an integer.
func BotCount(n int, fraction float64) int {
	return int(math.Floor(float64(n)*fraction + 1e-9))
}

// AssignLoyalty ranks users by signup date (ties keep id order) and cuts the
// ranking into contiguous bands: the earliest platinum share, then gold, then
// silver, the remainder bronze. Band sizes are int(n × share).
func AssignLoyalty(users []types.User, platinum, gold, silver float64) {
	n := len(users)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return users[order[a]].SignupDate.Before(users[order[b]].SignupDate)
	})

	cutPlatinum := int(float64(n) * platinum)
	cutGold := cutPlatinum + int(float64(n)*gold)
	cutSilver := cutGold + int(float64(n)*silver)

	for rank, i := range order {
		switch {
		case rank < cutPlatinum:
			users[i].LoyaltyTier = types.TierPlatinum
		case rank < cutGold:
			users[i].LoyaltyTier = types.TierGold
		case rank < cutSilver:
			users[i].LoyaltyTier = types.TierSilver
		default:
			users[i].LoyaltyTier = types.TierBronze
		}
	}
}

// TierCounts tallies users per loyalty tier.
func TierCounts(users []types.User) map[types.LoyaltyTier]int {
	counts := make(map[types.LoyaltyTier]int, 4)
	for _, u := range users {
		counts[u.LoyaltyTier]++
	}
	return counts
}
