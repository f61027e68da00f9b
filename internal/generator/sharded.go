package generator

import (
	"context"
	"sync"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/funnel"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/logging"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/population"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/rng"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// Sub-stream labels. Changing any of them changes sharded output.
const (
	streamUser       = "population"
	streamBots       = "bots"
	streamSessions   = "sessions"
	streamDownsample = "downsample"
	streamFunnel     = "funnel"
	streamNoise      = "noise"
	streamOrders     = "orders"
)

// parallelFor runs fn(i) for every i in [0, n) on a fixed pool of workers.
// fn must only write to slots owned by i.
func parallelFor(ctx context.Context, workers, n int, fn func(i int)) error {
	jobs := make(chan int, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	var err error
feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return err
}

// userSpan is the contiguous run of sessions owned by one user.
type userSpan struct {
	userID   int64
	from, to int
}

func spansByUser(sessions []types.Session) []userSpan {
	var spans []userSpan
	for i, s := range sessions {
		if len(spans) == 0 || spans[len(spans)-1].userID != s.UserID {
			spans = append(spans, userSpan{userID: s.UserID, from: i})
		}
		spans[len(spans)-1].to = i + 1
	}
	return spans
}

func (g *Generator) generateSharded(ctx context.Context) (*Result, error) {
	seed := g.cfg.Seed
	workers := g.cfg.Workers
	res := &Result{States: make(map[funnel.State]int)}

	t := time.Now()
	users := make([]types.User, g.cfg.Population.Users)
	err := parallelFor(ctx, workers, len(users), func(i int) {
		id := int64(i + 1)
		users[i] = g.population.Draw(rng.Derive(seed, streamUser, id), id)
	})
	if err != nil {
		return nil, err
	}
	g.population.SelectBots(rng.Derive(seed, streamBots, 0), users)
	p := g.cfg.Population
	population.AssignLoyalty(users, p.PlatinumShare, p.GoldShare, p.SilverShare)
	res.Users = users
	logging.Timed(g.logger, "population done", t, "users", len(users))

	t = time.Now()
	perUser := make([][]types.Session, len(users))
	err = parallelFor(ctx, workers, len(users), func(i int) {
		perUser[i] = g.schedule.ForUser(rng.Derive(seed, streamSessions, users[i].UserID), users[i])
	})
	if err != nil {
		return nil, err
	}
	var sessions []types.Session
	for _, s := range perUser {
		sessions = append(sessions, s...)
	}
	res.Sessions = g.schedule.Downsample(rng.Derive(seed, streamDownsample, 0), sessions)
	logging.Timed(g.logger, "schedule done", t, "sessions", len(res.Sessions))

	t = time.Now()
	spans := spansByUser(res.Sessions)
	perSpan := make([][]types.Event, len(spans))
	states := make([][]funnel.State, len(spans))
	err = parallelFor(ctx, workers, len(spans), func(k int) {
		span := spans[k]
		src := rng.Derive(seed, streamFunnel, span.userID)
		ids := funnel.NewULIDs(rng.NewReader(src))
		user := users[span.userID-1]
		for _, sess := range res.Sessions[span.from:span.to] {
			events, state := g.funnel.Run(src, ids, user, sess)
			perSpan[k] = append(perSpan[k], events...)
			states[k] = append(states[k], state)
		}
	})
	if err != nil {
		return nil, err
	}
	for k := range perSpan {
		res.Events = append(res.Events, perSpan[k]...)
		for _, s := range states[k] {
			res.States[s]++
		}
	}
	logging.Timed(g.logger, "funnel done", t, "events", len(res.Events), "workers", workers)

	if err := g.finish(rng.Derive(seed, streamNoise, 0), rng.Derive(seed, streamOrders, 0), res); err != nil {
		return nil, err
	}
	return res, nil
}
