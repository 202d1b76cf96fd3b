// Package jobs runs periodic store maintenance next to the API server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// jobTimeout bounds a single run so a wedged query cannot pile up runs.
const jobTimeout = 30 * time.Second

// Maintainer is the part of the store the jobs need.
type Maintainer interface {
	Counts(ctx context.Context) (map[string]int64, error)
	Optimize(ctx context.Context) error
}

// Schedules are cron specs ("@every 1m", "0 3 * * *", ...). An empty spec
// disables that job.
type Schedules struct {
	Stats    string
	Optimize string
}

type Scheduler struct {
	cron  *cron.Cron
	store Maintainer
	gauge *prometheus.GaugeVec
	log   *logrus.Logger
}

// New registers the jobs without starting them. gauge is labelled by table.
func New(st Maintainer, gauge *prometheus.GaugeVec, log *logrus.Logger, sched Schedules) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(),
		store: st,
		gauge: gauge,
		log:   log,
	}
	jobs := []struct {
		name, spec string
		fn         func(context.Context) error
	}{
		{"stats", sched.Stats, s.RefreshCounts},
		{"optimize", sched.Optimize, s.store.Optimize},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, s.wrap(j.name, j.fn)); err != nil {
			return nil, fmt.Errorf("%s schedule %q: %w", j.name, j.spec, err)
		}
		log.WithFields(logrus.Fields{"job": j.name, "schedule": j.spec}).Info("job scheduled")
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RefreshCounts sets the gauge to the current row count of every table.
func (s *Scheduler) RefreshCounts(ctx context.Context) error {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return err
	}
	for table, n := range counts {
		s.gauge.WithLabelValues(table).Set(float64(n))
	}
	return nil
}

func (s *Scheduler) wrap(name string, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := time.Now()
		entry := s.log.WithField("job", name)
		if err := job(ctx); err != nil {
			entry.WithError(err).Error("job failed")
			return
		}
		entry.WithField("duration", time.Since(start)).Debug("job done")
	}
}
