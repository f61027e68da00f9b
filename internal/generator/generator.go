// Package generator wires the population, schedule, funnel, noise and order
// stages into one reproducible run.
package generator

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/audit"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/funnel"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/logging"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/noise"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/orders"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/population"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/rng"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/schedule"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// Result is the output of one run.
type Result struct {
	types.Dataset

	// Noise reports what the injector changed.
	Noise noise.Report

	// States counts sessions by the furthest funnel state reached.
	States map[funnel.State]int

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Generator runs the full pipeline for one configuration.
type Generator struct {
	cfg    *config.Config
	logger *slog.Logger

	population *population.Generator
	schedule   *schedule.Scheduler
	funnel     *funnel.Simulator
	noise      *noise.Injector
	orders     *orders.Synthesizer
}

// New validates cfg and builds the stage components.
func New(cfg *config.Config, logger *slog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:        cfg,
		logger:     logging.OrDiscard(logger),
		population: population.New(cfg.Population, cfg.Window),
		schedule:   schedule.New(cfg.Sessions, cfg.Window),
		funnel:     funnel.New(cfg.Funnel, cfg.Population.Products),
		noise:      noise.New(cfg.Noise),
		orders:     orders.New(cfg.Orders),
	}, nil
}

// Generate produces the dataset. With one worker every stage consumes a
// single stream seeded from cfg.Seed in the fixed order users, sessions,
// events, noise, orders. With more workers each user gets derived
// sub-streams; that output is stable across any worker count above one but
// differs from the single-stream output.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	start := time.Now()
	g.logger.Debug("generation started",
		"seed", g.cfg.Seed,
		"users", g.cfg.Population.Users,
		"workers", g.cfg.Workers)

	var (
		res *Result
		err error
	)
	if g.cfg.Workers > 1 {
		res, err = g.generateSharded(ctx)
	} else {
		res, err = g.generateSingle(ctx)
	}
	if err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	g.logger.Debug("generation finished",
		"users", len(res.Users),
		"sessions", len(res.Sessions),
		"events", len(res.Events),
		"orders", len(res.Orders),
		"elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

func (g *Generator) generateSingle(ctx context.Context) (*Result, error) {
	src := rng.New(g.cfg.Seed)
	res := &Result{States: make(map[funnel.State]int)}

	t := time.Now()
	res.Users = g.population.Generate(src)
	logging.Timed(g.logger, "population done", t, "users", len(res.Users))

	t = time.Now()
	res.Sessions = g.schedule.Schedule(src, res.Users)
	logging.Timed(g.logger, "schedule done", t, "sessions", len(res.Sessions))

	t = time.Now()
	ids := funnel.NewULIDs(rng.NewReader(src))
	res.Events = make([]types.Event, 0, len(res.Sessions)*3)
	for i, sess := range res.Sessions {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		events, state := g.funnel.Run(src, ids, res.Users[sess.UserID-1], sess)
		res.Events = append(res.Events, events...)
		res.States[state]++
	}
	logging.Timed(g.logger, "funnel done", t, "events", len(res.Events))

	if err := g.finish(src, src, res); err != nil {
		return nil, err
	}
	return res, nil
}

// finish audits the clean events, injects noise and derives orders.
func (g *Generator) finish(noiseSrc, orderSrc rng.Source, res *Result) error {
	if v := audit.CheckEvents(res.Events, res.Users); len(v) > 0 {
		return errors.New(errors.ErrCategoryGeneration, errors.CodeInvariantViolated, v.Error()).
			WithDetails(map[string]interface{}{"violations": len(v)})
	}

	t := time.Now()
	res.Noise = g.noise.Apply(noiseSrc, res.Events)
	logging.Timed(g.logger, "noise done", t,
		"missing", res.Noise.Missing,
		"duplicated", res.Noise.Duplicated)

	t = time.Now()
	res.Orders = g.orders.Synthesize(orderSrc, res.Events)
	logging.Timed(g.logger, "orders done", t, "orders", len(res.Orders))

	if v := audit.CheckOrders(res.Orders, g.cfg.Orders.PriceFloor, len(g.cfg.Orders.QuantityWeights)); len(v) > 0 {
		return errors.New(errors.ErrCategoryGeneration, errors.CodeInvariantViolated, v.Error()).
			WithDetails(map[string]interface{}{"violations": len(v)})
	}
	return nil
}
