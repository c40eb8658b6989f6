package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/kickabout-app/kickabout/common/models"
	gameerrors "github.com/kickabout-app/kickabout/internal/errors"
	"github.com/kickabout-app/kickabout/internal/repository"
)

type CreateGameRequest struct {
	Title           string
	Description     string
	Location        string
	DateTime        time.Time
	DurationMinutes int
	MaxPlayers      int
	SkillLevelMin   int
	SkillLevelMax   int
	CreatedBy       string
}

type GamesQuery struct {
	Status   models.GameStatus
	SkillMin *int
	SkillMax *int
	Limit    int32
	UserId   string
}

// GameView is a game listing entry, annotated with the querying user's
// participation when a user id was supplied.
type GameView struct {
	Game              models.Game
	CreatorName       string
	ConfirmedPlayers  int
	WaitlistedPlayers int
	UserParticipation *ParticipationView
}

type UserGameView struct {
	Game          models.Game
	CreatorName   string
	Participation ParticipationView
}

type GameService interface {
	CreateGame(ctx context.Context, req CreateGameRequest) (*models.Game, *apperrors.AppError)
	ListGames(ctx context.Context, query GamesQuery) ([]GameView, *apperrors.AppError)
	GetUserGames(ctx context.Context, userID string, status models.ParticipantStatus) ([]UserGameView, *apperrors.AppError)
	CompleteExpiredGames(ctx context.Context) (int, *apperrors.AppError)
}

type gameService struct {
	gameRepo        repository.GameRepository
	participantRepo repository.ParticipantRepository
	userRepo        repository.UserRepository
	eventPublisher  EventPublisher
	logger          *logger.Logger
}

func NewGameService(
	gameRepo repository.GameRepository,
	participantRepo repository.ParticipantRepository,
	userRepo repository.UserRepository,
	eventPublisher EventPublisher,
	logger *logger.Logger,
) GameService {
	return &gameService{
		gameRepo:        gameRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

func (s *gameService) CreateGame(ctx context.Context, req CreateGameRequest) (*models.Game, *apperrors.AppError) {
	setDefaultValuesForGame(&req)

	if err := validateCreateGameRequest(&req); err != nil {
		return nil, err
	}

	creator, err := s.userRepo.GetById(ctx, req.CreatedBy)
	if err != nil {
		return nil, err
	}
	if creator == nil || !creator.IsActive {
		return nil, gameerrors.UserNotFoundError(req.CreatedBy)
	}

	game := &models.Game{
		GameId:          uuid.New().String(),
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Location:        strings.TrimSpace(req.Location),
		DateTime:        req.DateTime.UTC(),
		DurationMinutes: req.DurationMinutes,
		MaxPlayers:      req.MaxPlayers,
		SkillLevelMin:   req.SkillLevelMin,
		SkillLevelMax:   req.SkillLevelMax,
		Status:          models.GameStatusOpen,
		CreatedBy:       req.CreatedBy,
		ConfirmedCount:  0,
		NextJoinSeq:     1,
		Version:         1,
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, err
	}

	s.logger.Info("Created game",
		"game_id", game.GameId,
		"created_by", game.CreatedBy,
		"max_players", game.MaxPlayers,
	)

	if err := s.eventPublisher.PublishGameCreated(ctx, game); err != nil {
		s.logger.Warn("Failed to publish game created event",
			"error", err,
			"game_id", game.GameId,
		)
	}

	return game, nil
}

func (s *gameService) ListGames(ctx context.Context, query GamesQuery) ([]GameView, *apperrors.AppError) {
	if query.Status == "" {
		query.Status = models.GameStatusOpen
	}
	if !query.Status.Valid() {
		return nil, apperrors.New(apperrors.CodeInvalidInput,
			fmt.Sprintf("invalid game status: %s", query.Status))
	}

	games, err := s.gameRepo.List(ctx, repository.GameFilter{
		Status:   query.Status,
		SkillMin: query.SkillMin,
		SkillMax: query.SkillMax,
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, err
	}

	views := make([]GameView, 0, len(games))
	for i := range games {
		view, err := s.buildGameView(ctx, &games[i], query.UserId)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}

	return views, nil
}

func (s *gameService) GetUserGames(
	ctx context.Context,
	userID string,
	status models.ParticipantStatus,
) ([]UserGameView, *apperrors.AppError) {
	user, err := s.userRepo.GetById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, gameerrors.UserNotFoundError(userID)
	}

	participations, err := s.participantRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]UserGameView, 0, len(participations))
	for i := range participations {
		participation := participations[i]
		if status != "" && participation.Status != status {
			continue
		}

		game, err := s.gameRepo.GetById(ctx, participation.GameId)
		if err != nil {
			return nil, err
		}
		if game == nil {
			// Participation row outlived its game meta row. Skip rather than
			// fail the whole listing.
			s.logger.Warn("Orphaned participation",
				"game_id", participation.GameId,
				"user_id", userID,
			)
			continue
		}

		view := UserGameView{
			Game: *game,
			Participation: ParticipationView{
				Status:   participation.Status,
				JoinedAt: participation.JoinedAt.Format(time.RFC3339),
			},
		}

		if participation.Status == models.ParticipantWaitlisted {
			all, err := s.participantRepo.ListByGame(ctx, participation.GameId)
			if err != nil {
				return nil, err
			}
			view.Participation.WaitlistPosition = computeWaitlistPosition(all, &participation)
		}

		if creator, err := s.userRepo.GetById(ctx, game.CreatedBy); err == nil && creator != nil {
			view.CreatorName = creator.DisplayName()
		}

		views = append(views, view)
	}

	return views, nil
}

// CompleteExpiredGames transitions open games whose scheduled play window has
// passed. A game changed concurrently is skipped and retried on the next run.
func (s *gameService) CompleteExpiredGames(ctx context.Context) (int, *apperrors.AppError) {
	games, err := s.gameRepo.List(ctx, repository.GameFilter{Status: models.GameStatusOpen})
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	completed := 0

	for i := range games {
		game := &games[i]
		if game.EndsAt().After(now) {
			continue
		}

		if err := s.gameRepo.CompleteGame(ctx, game); err != nil {
			if err.Code == apperrors.CodeTransactionConflict {
				s.logger.Debug("Skipping concurrently modified game",
					"game_id", game.GameId,
				)
				continue
			}
			return completed, err
		}

		completed++
		s.logger.Info("Completed expired game",
			"game_id", game.GameId,
			"ended_at", game.EndsAt(),
		)

		if err := s.eventPublisher.PublishGameCompleted(ctx, game.GameId); err != nil {
			s.logger.Warn("Failed to publish game completed event",
				"error", err,
				"game_id", game.GameId,
			)
		}
	}

	return completed, nil
}

// Private methods

func (s *gameService) buildGameView(ctx context.Context, game *models.Game, userID string) (*GameView, *apperrors.AppError) {
	participants, err := s.participantRepo.ListByGame(ctx, game.GameId)
	if err != nil {
		return nil, err
	}

	view := &GameView{Game: *game}

	var own *models.Participant
	for i := range participants {
		switch participants[i].Status {
		case models.ParticipantConfirmed:
			view.ConfirmedPlayers++
		case models.ParticipantWaitlisted:
			view.WaitlistedPlayers++
		}
		if userID != "" && participants[i].UserId == userID {
			own = &participants[i]
		}
	}

	if own != nil {
		participation := &ParticipationView{
			Status:   own.Status,
			JoinedAt: own.JoinedAt.Format(time.RFC3339),
		}
		if own.Status == models.ParticipantWaitlisted {
			participation.WaitlistPosition = computeWaitlistPosition(participants, own)
		}
		view.UserParticipation = participation
	}

	if creator, err := s.userRepo.GetById(ctx, game.CreatedBy); err == nil && creator != nil {
		view.CreatorName = creator.DisplayName()
	}

	return view, nil
}

func setDefaultValuesForGame(req *CreateGameRequest) {
	if req.DurationMinutes == 0 {
		req.DurationMinutes = 90
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 22
	}
	if req.SkillLevelMin == 0 {
		req.SkillLevelMin = 1
	}
	if req.SkillLevelMax == 0 {
		req.SkillLevelMax = 10
	}
}

func validateCreateGameRequest(req *CreateGameRequest) *apperrors.AppError {
	title := strings.TrimSpace(req.Title)
	if len(title) < 3 || len(title) > 100 {
		return apperrors.New(apperrors.CodeInvalidInput, "title must be between 3 and 100 characters")
	}

	location := strings.TrimSpace(req.Location)
	if len(location) < 3 || len(location) > 200 {
		return apperrors.New(apperrors.CodeInvalidInput, "location must be between 3 and 200 characters")
	}

	if req.DateTime.IsZero() {
		return apperrors.New(apperrors.CodeInvalidInput, "date_time is required")
	}

	if req.DurationMinutes < 30 || req.DurationMinutes > 180 {
		return apperrors.New(apperrors.CodeInvalidInput, "duration must be between 30 and 180 minutes")
	}

	if req.MaxPlayers < 4 || req.MaxPlayers > 30 {
		return apperrors.New(apperrors.CodeInvalidInput, "max players must be between 4 and 30")
	}

	if req.SkillLevelMin < 1 || req.SkillLevelMin > 10 ||
		req.SkillLevelMax < 1 || req.SkillLevelMax > 10 {
		return apperrors.New(apperrors.CodeInvalidInput, "skill levels must be between 1 and 10")
	}

	if req.SkillLevelMin > req.SkillLevelMax {
		return apperrors.New(apperrors.CodeInvalidInput, "minimum skill level cannot exceed maximum")
	}

	if req.CreatedBy == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "created_by is required")
	}

	return nil
}
