package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/kickabout-app/kickabout/common/models"
	gameerrors "github.com/kickabout-app/kickabout/internal/errors"
	"github.com/kickabout-app/kickabout/internal/repository"
)

// maxCommitAttempts bounds how often a join or leave is replayed after
// losing a serialization conflict on the game's ledger.
const maxCommitAttempts = 5

type JoinResult struct {
	GameId           string
	GameTitle        string
	Status           models.ParticipantStatus
	WaitlistPosition int
}

type LeaveResult struct {
	GameId         string
	GameTitle      string
	PreviousStatus models.ParticipantStatus
}

type RosterEntry struct {
	Participant models.Participant
	User        *models.User
}

type Roster struct {
	GameId     string
	Confirmed  []RosterEntry
	Waitlisted []RosterEntry
}

type ParticipationView struct {
	Status           models.ParticipantStatus
	WaitlistPosition int
	JoinedAt         string
}

// EventPublisher is what the services need from the event layer.
type EventPublisher interface {
	PublishParticipantJoined(ctx context.Context, participant *models.Participant, userName string) error
	PublishParticipantPromoted(ctx context.Context, gameId, userId string) error
	PublishParticipantLeft(ctx context.Context, gameId, userId string, previousStatus models.ParticipantStatus) error
	PublishGameCreated(ctx context.Context, game *models.Game) error
	PublishGameCompleted(ctx context.Context, gameId string) error
}

type AdmissionService interface {
	Join(ctx context.Context, gameID, userID, positionPreference string) (*JoinResult, *apperrors.AppError)
	Leave(ctx context.Context, gameID, userID string) (*LeaveResult, *apperrors.AppError)
	ListParticipants(ctx context.Context, gameID string) (*Roster, *apperrors.AppError)
	ParticipationStatus(ctx context.Context, gameID, userID string) (*ParticipationView, *apperrors.AppError)
}

type admissionService struct {
	gameRepo        repository.GameRepository
	participantRepo repository.ParticipantRepository
	userRepo        repository.UserRepository
	ledgerRepo      repository.LedgerRepository
	eventPublisher  EventPublisher
	logger          *logger.Logger
}

func NewAdmissionService(
	gameRepo repository.GameRepository,
	participantRepo repository.ParticipantRepository,
	userRepo repository.UserRepository,
	ledgerRepo repository.LedgerRepository,
	eventPublisher EventPublisher,
	logger *logger.Logger,
) AdmissionService {
	return &admissionService{
		gameRepo:        gameRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		ledgerRepo:      ledgerRepo,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

// Join admits a user to a game, confirmed while capacity remains and
// waitlisted after that. The read-decide-commit sequence is replayed from
// the top whenever the ledger commit loses a conflict, so the capacity
// decision is always made against the state it commits on.
func (s *admissionService) Join(
	ctx context.Context,
	gameID, userID, positionPreference string,
) (*JoinResult, *apperrors.AppError) {
	if !models.ValidPositionPreference(positionPreference) {
		return nil, apperrors.New(apperrors.CodeInvalidInput,
			fmt.Sprintf("invalid position preference: %s", positionPreference))
	}

	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		game, err := s.gameRepo.GetById(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if game == nil {
			return nil, gameerrors.GameNotFoundError(gameID)
		}

		if game.Status != models.GameStatusOpen {
			return nil, gameerrors.GameNotOpenError(game.Status)
		}

		user, err := s.userRepo.GetById(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil || !user.IsActive {
			return nil, gameerrors.UserNotFoundError(userID)
		}

		if user.SkillLevel < game.SkillLevelMin || user.SkillLevel > game.SkillLevelMax {
			return nil, gameerrors.SkillLevelError(user.SkillLevel, game.SkillLevelMin, game.SkillLevelMax)
		}

		existing, err := s.participantRepo.GetByGameAndUser(ctx, gameID, userID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, gameerrors.AlreadyJoinedError(existing.Status)
		}

		status := models.ParticipantWaitlisted
		if game.ConfirmedCount < game.MaxPlayers {
			status = models.ParticipantConfirmed
		}

		participant := &models.Participant{
			GameId:             gameID,
			UserId:             userID,
			Status:             status,
			PositionPreference: positionPreference,
		}

		if err := s.ledgerRepo.AppendParticipant(ctx, game, participant); err != nil {
			if err.Code == apperrors.CodeTransactionConflict {
				s.logger.Debug("Join lost a ledger conflict, retrying",
					"game_id", gameID,
					"user_id", userID,
					"attempt", attempt+1,
				)
				continue
			}
			return nil, err
		}

		result := &JoinResult{
			GameId:    gameID,
			GameTitle: game.Title,
			Status:    status,
		}

		if status == models.ParticipantWaitlisted {
			position, err := s.waitlistPosition(ctx, gameID, participant)
			if err != nil {
				return nil, err
			}
			result.WaitlistPosition = position
		}

		if err := s.eventPublisher.PublishParticipantJoined(ctx, participant, user.DisplayName()); err != nil {
			s.logger.Warn("Failed to publish participant joined event",
				"error", err,
				"game_id", gameID,
				"user_id", userID,
			)
		}

		return result, nil
	}

	return nil, gameerrors.CommitContentionError(gameID)
}

// Leave removes a participant and, when a confirmed slot was vacated,
// promotes the earliest-joined waitlisted participant in the same atomic
// commit. Removing a waitlisted participant only shortens the queue.
func (s *admissionService) Leave(
	ctx context.Context,
	gameID, userID string,
) (*LeaveResult, *apperrors.AppError) {
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		game, err := s.gameRepo.GetById(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if game == nil {
			return nil, gameerrors.GameNotFoundError(gameID)
		}

		departing, err := s.participantRepo.GetByGameAndUser(ctx, gameID, userID)
		if err != nil {
			return nil, err
		}
		if departing == nil {
			return nil, gameerrors.NotRegisteredError(gameID)
		}

		var promoted *models.Participant
		if departing.Status == models.ParticipantConfirmed {
			promoted, err = s.promotionCandidate(ctx, gameID)
			if err != nil {
				return nil, err
			}
		}

		if err := s.ledgerRepo.RemoveParticipant(ctx, game, departing, promoted); err != nil {
			if err.Code == apperrors.CodeTransactionConflict {
				s.logger.Debug("Leave lost a ledger conflict, retrying",
					"game_id", gameID,
					"user_id", userID,
					"attempt", attempt+1,
				)
				continue
			}
			return nil, err
		}

		if err := s.eventPublisher.PublishParticipantLeft(ctx, gameID, userID, departing.Status); err != nil {
			s.logger.Warn("Failed to publish participant left event",
				"error", err,
				"game_id", gameID,
				"user_id", userID,
			)
		}

		if promoted != nil {
			s.logger.Info("Promoted waitlisted participant",
				"game_id", gameID,
				"user_id", promoted.UserId,
			)
			if err := s.eventPublisher.PublishParticipantPromoted(ctx, gameID, promoted.UserId); err != nil {
				s.logger.Warn("Failed to publish participant promoted event",
					"error", err,
					"game_id", gameID,
					"user_id", promoted.UserId,
				)
			}
		}

		return &LeaveResult{
			GameId:         gameID,
			GameTitle:      game.Title,
			PreviousStatus: departing.Status,
		}, nil
	}

	return nil, gameerrors.CommitContentionError(gameID)
}

func (s *admissionService) ListParticipants(ctx context.Context, gameID string) (*Roster, *apperrors.AppError) {
	game, err := s.gameRepo.GetById(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, gameerrors.GameNotFoundError(gameID)
	}

	participants, err := s.participantRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	roster := &Roster{
		GameId:     gameID,
		Confirmed:  make([]RosterEntry, 0),
		Waitlisted: make([]RosterEntry, 0),
	}

	for i := range participants {
		participant := participants[i]

		user, err := s.userRepo.GetById(ctx, participant.UserId)
		if err != nil {
			return nil, err
		}

		entry := RosterEntry{Participant: participant, User: user}
		switch participant.Status {
		case models.ParticipantConfirmed:
			roster.Confirmed = append(roster.Confirmed, entry)
		case models.ParticipantWaitlisted:
			roster.Waitlisted = append(roster.Waitlisted, entry)
		}
	}

	return roster, nil
}

// ParticipationStatus reports a user's relationship to a game. Returns nil
// when the user holds no participation.
func (s *admissionService) ParticipationStatus(
	ctx context.Context,
	gameID, userID string,
) (*ParticipationView, *apperrors.AppError) {
	participant, err := s.participantRepo.GetByGameAndUser(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, nil
	}

	view := &ParticipationView{
		Status:   participant.Status,
		JoinedAt: participant.JoinedAt.Format(time.RFC3339),
	}

	if participant.Status == models.ParticipantWaitlisted {
		position, err := s.waitlistPosition(ctx, gameID, participant)
		if err != nil {
			return nil, err
		}
		view.WaitlistPosition = position
	}

	return view, nil
}

// Private methods

// waitlistPosition is recomputed from join order on every read. It is never
// stored, so departures ahead in the queue can never leave stale positions
// behind.
func (s *admissionService) waitlistPosition(
	ctx context.Context,
	gameID string,
	participant *models.Participant,
) (int, *apperrors.AppError) {
	participants, err := s.participantRepo.ListByGame(ctx, gameID)
	if err != nil {
		return 0, err
	}

	return computeWaitlistPosition(participants, participant), nil
}

func (s *admissionService) promotionCandidate(ctx context.Context, gameID string) (*models.Participant, *apperrors.AppError) {
	participants, err := s.participantRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var candidate *models.Participant
	for i := range participants {
		if participants[i].Status != models.ParticipantWaitlisted {
			continue
		}
		if candidate == nil || participants[i].JoinSeq < candidate.JoinSeq {
			candidate = &participants[i]
		}
	}

	return candidate, nil
}

// computeWaitlistPosition counts waitlisted participants that joined
// earlier, plus one.
func computeWaitlistPosition(participants []models.Participant, participant *models.Participant) int {
	position := 1
	for i := range participants {
		if participants[i].Status != models.ParticipantWaitlisted {
			continue
		}
		if participants[i].JoinSeq < participant.JoinSeq {
			position++
		}
	}
	return position
}
