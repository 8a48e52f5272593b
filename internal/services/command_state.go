package services

import (
	"sync"

	"irrigation-gateway/internal/models"
)

// CommandState holds the last dispatched pump command. It is a single slot:
// every Set replaces the previous state wholesale.
type CommandState struct {
	mu    sync.RWMutex
	state models.LastCommandState
}

// NewCommandState creates an empty state (all fields null)
func NewCommandState() *CommandState {
	return &CommandState{}
}

// Get returns a copy of the current state
func (s *CommandState) Get() models.LastCommandState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.state
	if s.state.Result != nil {
		state.Result = make([]models.ChannelOutcome, len(s.state.Result))
		copy(state.Result, s.state.Result)
	}
	return state
}

// Set replaces the state with the given command and its delivery results
func (s *CommandState) Set(cmd models.ActuationCommand, mode string, results []models.ChannelOutcome, accepted bool) {
	next := models.NewLastCommandState(cmd, mode, results, accepted)

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}
