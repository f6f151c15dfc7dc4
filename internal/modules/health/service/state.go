package service

import (
	"sync/atomic"
	"time"

	"copy_bot/internal/models"
)

// Reporter — то, что health читает у движка.
type Reporter interface {
	Positions() []models.Position
	Processed() int
}

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected   atomic.Bool
	lastBatchUnix atomic.Int64 // unix seconds
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) TouchBatch(t time.Time) { s.lastBatchUnix.Store(t.Unix()) }
func (s *State) LastBatch() time.Time {
	u := s.lastBatchUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
