package execution

import "uiflow/internal/domain"

// Scheduler distributes scenarios across workers
type Scheduler interface {
	Schedule(scenarios []domain.Scenario, workerCount int) [][]domain.Scenario
}

// RoundRobinScheduler distributes scenarios evenly across workers
type RoundRobinScheduler struct{}

// NewRoundRobinScheduler creates a new RoundRobinScheduler
func NewRoundRobinScheduler() *RoundRobinScheduler {
	return &RoundRobinScheduler{}
}

// Schedule distributes scenarios evenly across workers using round-robin
func (s *RoundRobinScheduler) Schedule(scenarios []domain.Scenario, workerCount int) [][]domain.Scenario {
	if workerCount <= 0 {
		workerCount = 1
	}

	distribution := make([][]domain.Scenario, workerCount)
	for i := range distribution {
		distribution[i] = make([]domain.Scenario, 0)
	}

	for i, s := range scenarios {
		workerIndex := i % workerCount
		distribution[workerIndex] = append(distribution[workerIndex], s)
	}

	return distribution
}
