package service

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/kickabout-app/kickabout/common/models"
	"github.com/kickabout-app/kickabout/internal/repository"
)

// fakeStore backs the repository fakes with a single mutex, so ledger
// commits are atomic and version-conditioned exactly like the real table.
type fakeStore struct {
	mu           sync.Mutex
	games        map[string]*models.Game
	users        map[string]*models.User
	participants map[string]map[string]*models.Participant
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games:        make(map[string]*models.Game),
		users:        make(map[string]*models.User),
		participants: make(map[string]map[string]*models.Participant),
	}
}

func (s *fakeStore) addGame(game *models.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *game
	s.games[game.GameId] = &copied
	if s.participants[game.GameId] == nil {
		s.participants[game.GameId] = make(map[string]*models.Participant)
	}
}

func (s *fakeStore) addUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.UserId] = &copied
}

func (s *fakeStore) game(gameID string) *models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game, ok := s.games[gameID]; ok {
		copied := *game
		return &copied
	}
	return nil
}

func conflictError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeTransactionConflict, "ledger changed concurrently")
}

type fakeGameRepo struct {
	store *fakeStore
}

func (r *fakeGameRepo) Create(ctx context.Context, game *models.Game) *apperrors.AppError {
	r.store.addGame(game)
	return nil
}

func (r *fakeGameRepo) GetById(ctx context.Context, gameID string) (*models.Game, *apperrors.AppError) {
	return r.store.game(gameID), nil
}

func (r *fakeGameRepo) List(ctx context.Context, filter repository.GameFilter) ([]models.Game, *apperrors.AppError) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	games := make([]models.Game, 0)
	for _, game := range r.store.games {
		if game.Status != filter.Status {
			continue
		}
		if filter.SkillMin != nil && game.SkillLevelMax < *filter.SkillMin {
			continue
		}
		if filter.SkillMax != nil && game.SkillLevelMin > *filter.SkillMax {
			continue
		}
		games = append(games, *game)
	}

	sort.Slice(games, func(i, j int) bool {
		return games[i].DateTime.Before(games[j].DateTime)
	})

	if filter.Limit > 0 && int32(len(games)) > filter.Limit {
		games = games[:filter.Limit]
	}

	return games, nil
}

func (r *fakeGameRepo) CompleteGame(ctx context.Context, game *models.Game) *apperrors.AppError {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.games[game.GameId]
	if !ok || stored.Status != models.GameStatusOpen || stored.Version != game.Version {
		return conflictError()
	}

	stored.Status = models.GameStatusCompleted
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) GetById(ctx context.Context, userID string) (*models.User, *apperrors.AppError) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if user, ok := r.store.users[userID]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

type fakeParticipantRepo struct {
	store *fakeStore
}

func (r *fakeParticipantRepo) GetByGameAndUser(
	ctx context.Context,
	gameID, userID string,
) (*models.Participant, *apperrors.AppError) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if participant, ok := r.store.participants[gameID][userID]; ok {
		copied := *participant
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeParticipantRepo) ListByGame(ctx context.Context, gameID string) ([]models.Participant, *apperrors.AppError) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	participants := make([]models.Participant, 0, len(r.store.participants[gameID]))
	for _, participant := range r.store.participants[gameID] {
		participants = append(participants, *participant)
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinSeq < participants[j].JoinSeq
	})

	return participants, nil
}

func (r *fakeParticipantRepo) ListByUser(ctx context.Context, userID string) ([]models.Participant, *apperrors.AppError) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	participants := make([]models.Participant, 0)
	for _, byUser := range r.store.participants {
		if participant, ok := byUser[userID]; ok {
			participants = append(participants, *participant)
		}
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})

	return participants, nil
}

// fakeLedgerRepo applies a commit only when the caller's game snapshot is
// still current, mirroring the version and capacity conditions of the real
// transaction.
type fakeLedgerRepo struct {
	store *fakeStore
}

func (r *fakeLedgerRepo) AppendParticipant(
	ctx context.Context,
	game *models.Game,
	participant *models.Participant,
) *apperrors.AppError {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.games[game.GameId]
	if !ok || stored.Version != game.Version {
		return conflictError()
	}
	if _, exists := r.store.participants[game.GameId][participant.UserId]; exists {
		return conflictError()
	}
	if participant.Status == models.ParticipantConfirmed && stored.ConfirmedCount >= stored.MaxPlayers {
		return conflictError()
	}

	participant.JoinSeq = stored.NextJoinSeq
	participant.JoinedAt = time.Now().UTC()

	copied := *participant
	r.store.participants[game.GameId][participant.UserId] = &copied

	stored.NextJoinSeq++
	stored.Version++
	if participant.Status == models.ParticipantConfirmed {
		stored.ConfirmedCount++
	}

	return nil
}

func (r *fakeLedgerRepo) RemoveParticipant(
	ctx context.Context,
	game *models.Game,
	departing *models.Participant,
	promoted *models.Participant,
) *apperrors.AppError {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.games[game.GameId]
	if !ok || stored.Version != game.Version {
		return conflictError()
	}

	row, exists := r.store.participants[game.GameId][departing.UserId]
	if !exists || row.Status != departing.Status {
		return conflictError()
	}

	if promoted != nil {
		candidate, exists := r.store.participants[game.GameId][promoted.UserId]
		if !exists || candidate.Status != models.ParticipantWaitlisted {
			return conflictError()
		}
		candidate.Status = models.ParticipantConfirmed
	}

	delete(r.store.participants[game.GameId], departing.UserId)

	if departing.Status == models.ParticipantConfirmed && promoted == nil {
		stored.ConfirmedCount--
	}
	stored.Version++

	return nil
}

type publishedEvent struct {
	Subject string
	GameId  string
	UserId  string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) record(event publishedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) bySubject(subject string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	matched := make([]publishedEvent, 0)
	for _, event := range p.events {
		if event.Subject == subject {
			matched = append(matched, event)
		}
	}
	return matched
}

func (p *recordingPublisher) PublishParticipantJoined(ctx context.Context, participant *models.Participant, userName string) error {
	p.record(publishedEvent{Subject: "joined", GameId: participant.GameId, UserId: participant.UserId})
	return nil
}

func (p *recordingPublisher) PublishParticipantPromoted(ctx context.Context, gameId, userId string) error {
	p.record(publishedEvent{Subject: "promoted", GameId: gameId, UserId: userId})
	return nil
}

func (p *recordingPublisher) PublishParticipantLeft(ctx context.Context, gameId, userId string, previousStatus models.ParticipantStatus) error {
	p.record(publishedEvent{Subject: "left", GameId: gameId, UserId: userId})
	return nil
}

func (p *recordingPublisher) PublishGameCreated(ctx context.Context, game *models.Game) error {
	p.record(publishedEvent{Subject: "created", GameId: game.GameId})
	return nil
}

func (p *recordingPublisher) PublishGameCompleted(ctx context.Context, gameId string) error {
	p.record(publishedEvent{Subject: "completed", GameId: gameId})
	return nil
}

type testEnv struct {
	store     *fakeStore
	publisher *recordingPublisher
	admission AdmissionService
	games     GameService
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	pub := &recordingPublisher{}
	log := logger.New(logger.Config{Level: "error"})

	gameRepo := &fakeGameRepo{store: store}
	userRepo := &fakeUserRepo{store: store}
	participantRepo := &fakeParticipantRepo{store: store}
	ledgerRepo := &fakeLedgerRepo{store: store}

	return &testEnv{
		store:     store,
		publisher: pub,
		admission: NewAdmissionService(gameRepo, participantRepo, userRepo, ledgerRepo, pub, log),
		games:     NewGameService(gameRepo, participantRepo, userRepo, pub, log),
	}
}

func (e *testEnv) seedGame(gameID string, maxPlayers, skillMin, skillMax int) *models.Game {
	game := &models.Game{
		GameId:          gameID,
		Title:           "Sunday League",
		Location:        "Hackney Marshes",
		DateTime:        time.Now().Add(24 * time.Hour).UTC(),
		DurationMinutes: 90,
		MaxPlayers:      maxPlayers,
		SkillLevelMin:   skillMin,
		SkillLevelMax:   skillMax,
		Status:          models.GameStatusOpen,
		CreatedBy:       "creator",
		NextJoinSeq:     1,
		Version:         1,
	}
	e.store.addGame(game)
	return game
}

func (e *testEnv) seedUser(userID string, skillLevel int) {
	e.store.addUser(&models.User{
		UserId:     userID,
		Username:   userID,
		FirstName:  "Test",
		LastName:   userID,
		SkillLevel: skillLevel,
		IsActive:   true,
	})
}
