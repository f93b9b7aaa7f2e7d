package services

import (
	"log"

	"github.com/robfig/cron/v3"
)

// Sweeper evicts expired in-memory state and reports how much it removed.
type Sweeper interface {
	Sweep() int
}

// Scheduler runs the periodic housekeeping jobs of the panel.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a stopped scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Every registers sweeper to run on schedule, e.g. "@every 10m".
func (s *Scheduler) Every(schedule, name string, sweeper Sweeper) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if removed := sweeper.Sweep(); removed > 0 {
			log.Printf("Sweep %s removed %d entries", name, removed)
		}
	})
	if err != nil {
		return err
	}
	log.Printf("Scheduled %s sweep %s", name, schedule)
	return nil
}

// Start starts the task scheduler in its own goroutine.
func (s *Scheduler) Start() {
	log.Println("Starting task scheduler...")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
