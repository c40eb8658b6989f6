package scheduler

import (
	"context"
	"time"

	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/kickabout-app/kickabout/internal/service"
)

// GameScheduler sweeps open games whose play window has ended and marks
// them completed.
type GameScheduler struct {
	gameService service.GameService
	logger      *logger.Logger
}

func NewGameScheduler(gameService service.GameService, logger *logger.Logger) *GameScheduler {
	return &GameScheduler{
		gameService: gameService,
		logger:      logger.With("component", "GameScheduler"),
	}
}

func (s *GameScheduler) CompletionTask(interval time.Duration) Task {
	return Task{
		Name:     "complete-expired-games",
		Interval: interval,
		Run:      s.completeExpiredGames,
	}
}

func (s *GameScheduler) completeExpiredGames(ctx context.Context) error {
	completed, err := s.gameService.CompleteExpiredGames(ctx)
	if err != nil {
		return err
	}

	if completed > 0 {
		s.logger.Info("Completed expired games", "count", completed)
	}

	return nil
}
