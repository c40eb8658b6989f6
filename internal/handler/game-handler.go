package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/kickabout-app/kickabout/common/models"
	"github.com/kickabout-app/kickabout/internal/repository"
	"github.com/kickabout-app/kickabout/internal/service"
)

// ActivityReader is the slice of the attendance view the handler needs.
type ActivityReader interface {
	TopPlayers(ctx context.Context, limit int64) ([]repository.PlayerActivity, error)
}

type GameHandler struct {
	gameService      service.GameService
	admissionService service.AdmissionService
	activityReader   ActivityReader
	logger           *logger.Logger
}

func NewGameHandler(
	gameService service.GameService,
	admissionService service.AdmissionService,
	activityReader ActivityReader,
	logger *logger.Logger,
) *GameHandler {
	return &GameHandler{
		gameService:      gameService,
		admissionService: admissionService,
		activityReader:   activityReader,
		logger:           logger.With("component", "GameHandler"),
	}
}

func (h *GameHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	router.HandleFunc("/api/games", h.CreateGame).Methods(http.MethodPost)
	router.HandleFunc("/api/games", h.ListGames).Methods(http.MethodGet)
	router.HandleFunc("/api/games/{gameId}/join", h.JoinGame).Methods(http.MethodPost)
	router.HandleFunc("/api/games/{gameId}/leave", h.LeaveGame).Methods(http.MethodDelete)
	router.HandleFunc("/api/games/{gameId}/participants", h.ListParticipants).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userId}/games", h.UserGames).Methods(http.MethodGet)
	router.HandleFunc("/api/stats/active-players", h.ActivePlayers).Methods(http.MethodGet)
}

type createGameBody struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Location        string `json:"location"`
	DateTime        string `json:"date_time"`
	DurationMinutes int    `json:"duration_minutes"`
	MaxPlayers      int    `json:"max_players"`
	SkillLevelMin   int    `json:"skill_level_min"`
	SkillLevelMax   int    `json:"skill_level_max"`
}

type joinGameBody struct {
	PositionPreference string `json:"position_preference"`
}

type joinGameResponse struct {
	Message          string `json:"message"`
	Status           string `json:"status"`
	WaitlistPosition int    `json:"waitlist_position,omitempty"`
}

type leaveGameResponse struct {
	Message        string `json:"message"`
	PreviousStatus string `json:"previous_status"`
}

type rosterEntryResponse struct {
	UserId             string `json:"user_id"`
	Username           string `json:"username"`
	DisplayName        string `json:"display_name"`
	SkillLevel         int    `json:"skill_level"`
	Status             string `json:"status"`
	PositionPreference string `json:"position_preference,omitempty"`
	JoinedAt           string `json:"joined_at"`
	WaitlistPosition   int    `json:"waitlist_position,omitempty"`
}

type rosterResponse struct {
	GameId          string                `json:"game_id"`
	Confirmed       []rosterEntryResponse `json:"confirmed"`
	Waitlisted      []rosterEntryResponse `json:"waitlisted"`
	TotalConfirmed  int                   `json:"total_confirmed"`
	TotalWaitlisted int                   `json:"total_waitlisted"`
}

type gameResponse struct {
	GameId            string                 `json:"game_id"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description,omitempty"`
	Location          string                 `json:"location"`
	DateTime          string                 `json:"date_time"`
	DurationMinutes   int                    `json:"duration_minutes"`
	MaxPlayers        int                    `json:"max_players"`
	SkillLevelMin     int                    `json:"skill_level_min"`
	SkillLevelMax     int                    `json:"skill_level_max"`
	Status            string                 `json:"status"`
	CreatedBy         string                 `json:"created_by"`
	CreatorName       string                 `json:"creator_name,omitempty"`
	ConfirmedPlayers  int                    `json:"confirmed_players"`
	WaitlistedPlayers int                    `json:"waitlisted_players"`
	UserParticipation *participationResponse `json:"user_participation,omitempty"`
}

type participationResponse struct {
	Status           string `json:"status"`
	WaitlistPosition int    `json:"waitlist_position,omitempty"`
	JoinedAt         string `json:"joined_at"`
}

type userGameResponse struct {
	Game          gameResponse          `json:"game"`
	Participation participationResponse `json:"participation"`
}

func (h *GameHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	createdBy := r.URL.Query().Get("created_by")
	if createdBy == "" {
		apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput, "created_by is required"))
		return
	}

	var body createGameBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput, "invalid request body"))
		return
	}

	var dateTime time.Time
	if body.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, body.DateTime)
		if err != nil {
			apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput,
				"date_time must be an RFC 3339 timestamp"))
			return
		}
		dateTime = parsed
	}

	game, appErr := h.gameService.CreateGame(r.Context(), service.CreateGameRequest{
		Title:           body.Title,
		Description:     body.Description,
		Location:        body.Location,
		DateTime:        dateTime,
		DurationMinutes: body.DurationMinutes,
		MaxPlayers:      body.MaxPlayers,
		SkillLevelMin:   body.SkillLevelMin,
		SkillLevelMax:   body.SkillLevelMax,
		CreatedBy:       createdBy,
	})
	if appErr != nil {
		apperrors.WriteHTTP(w, appErr)
		return
	}

	writeJSON(w, http.StatusCreated, gameResponse{
		GameId:          game.GameId,
		Title:           game.Title,
		Description:     game.Description,
		Location:        game.Location,
		DateTime:        game.DateTime.Format(time.RFC3339),
		DurationMinutes: game.DurationMinutes,
		MaxPlayers:      game.MaxPlayers,
		SkillLevelMin:   game.SkillLevelMin,
		SkillLevelMax:   game.SkillLevelMax,
		Status:          string(game.Status),
		CreatedBy:       game.CreatedBy,
	})
}

func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	query := service.GamesQuery{
		Status: models.GameStatus(r.URL.Query().Get("status")),
		UserId: r.URL.Query().Get("user_id"),
	}

	if raw := r.URL.Query().Get("skill_min"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput, "skill_min must be a number"))
			return
		}
		query.SkillMin = &value
	}
	if raw := r.URL.Query().Get("skill_max"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput, "skill_max must be a number"))
			return
		}
		query.SkillMax = &value
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput, "limit must be a non-negative number"))
			return
		}
		query.Limit = int32(value)
	}

	views, appErr := h.gameService.ListGames(r.Context(), query)
	if appErr != nil {
		apperrors.WriteHTTP(w, appErr)
		return
	}

	games := make([]gameResponse, 0, len(views))
	for i := range views {
		games = append(games, toGameResponse(&views[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput, "user_id is required"))
		return
	}

	var body joinGameBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput, "invalid request body"))
			return
		}
	}

	result, appErr := h.admissionService.Join(r.Context(), gameID, userID, body.PositionPreference)
	if appErr != nil {
		apperrors.WriteHTTP(w, appErr)
		return
	}

	response := joinGameResponse{Status: string(result.Status)}
	if result.Status == models.ParticipantConfirmed {
		response.Message = fmt.Sprintf("You're confirmed for %s!", result.GameTitle)
	} else {
		response.Message = fmt.Sprintf("%s is full. You're #%d on the waitlist.",
			result.GameTitle, result.WaitlistPosition)
		response.WaitlistPosition = result.WaitlistPosition
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *GameHandler) LeaveGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput, "user_id is required"))
		return
	}

	result, appErr := h.admissionService.Leave(r.Context(), gameID, userID)
	if appErr != nil {
		apperrors.WriteHTTP(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, leaveGameResponse{
		Message:        fmt.Sprintf("You've left %s.", result.GameTitle),
		PreviousStatus: string(result.PreviousStatus),
	})
}

func (h *GameHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	roster, appErr := h.admissionService.ListParticipants(r.Context(), gameID)
	if appErr != nil {
		apperrors.WriteHTTP(w, appErr)
		return
	}

	response := rosterResponse{
		GameId:          roster.GameId,
		Confirmed:       make([]rosterEntryResponse, 0, len(roster.Confirmed)),
		Waitlisted:      make([]rosterEntryResponse, 0, len(roster.Waitlisted)),
		TotalConfirmed:  len(roster.Confirmed),
		TotalWaitlisted: len(roster.Waitlisted),
	}

	for i := range roster.Confirmed {
		response.Confirmed = append(response.Confirmed, toRosterEntryResponse(&roster.Confirmed[i], 0))
	}
	for i := range roster.Waitlisted {
		response.Waitlisted = append(response.Waitlisted, toRosterEntryResponse(&roster.Waitlisted[i], i+1))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *GameHandler) UserGames(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	status := models.ParticipantStatus(r.URL.Query().Get("status"))

	views, appErr := h.gameService.GetUserGames(r.Context(), userID, status)
	if appErr != nil {
		apperrors.WriteHTTP(w, appErr)
		return
	}

	games := make([]userGameResponse, 0, len(views))
	for i := range views {
		view := &views[i]
		games = append(games, userGameResponse{
			Game: gameResponse{
				GameId:          view.Game.GameId,
				Title:           view.Game.Title,
				Description:     view.Game.Description,
				Location:        view.Game.Location,
				DateTime:        view.Game.DateTime.Format(time.RFC3339),
				DurationMinutes: view.Game.DurationMinutes,
				MaxPlayers:      view.Game.MaxPlayers,
				SkillLevelMin:   view.Game.SkillLevelMin,
				SkillLevelMax:   view.Game.SkillLevelMax,
				Status:          string(view.Game.Status),
				CreatedBy:       view.Game.CreatedBy,
				CreatorName:     view.CreatorName,
			},
			Participation: participationResponse{
				Status:           string(view.Participation.Status),
				WaitlistPosition: view.Participation.WaitlistPosition,
				JoinedAt:         view.Participation.JoinedAt,
			},
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

func (h *GameHandler) ActivePlayers(w http.ResponseWriter, r *http.Request) {
	var limit int64 = 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value <= 0 {
			apperrors.WriteHTTP(w, apperrors.New(apperrors.CodeInvalidInput, "limit must be a positive number"))
			return
		}
		limit = value
	}

	players, err := h.activityReader.TopPlayers(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read active players", "error", err)
		apperrors.WriteHTTP(w, apperrors.Wrap(err, apperrors.CodeRedisOperationError,
			"failed to read active players"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"players": players,
		"count":   len(players),
	})
}

// Private methods

func toGameResponse(view *service.GameView) gameResponse {
	response := gameResponse{
		GameId:            view.Game.GameId,
		Title:             view.Game.Title,
		Description:       view.Game.Description,
		Location:          view.Game.Location,
		DateTime:          view.Game.DateTime.Format(time.RFC3339),
		DurationMinutes:   view.Game.DurationMinutes,
		MaxPlayers:        view.Game.MaxPlayers,
		SkillLevelMin:     view.Game.SkillLevelMin,
		SkillLevelMax:     view.Game.SkillLevelMax,
		Status:            string(view.Game.Status),
		CreatedBy:         view.Game.CreatedBy,
		CreatorName:       view.CreatorName,
		ConfirmedPlayers:  view.ConfirmedPlayers,
		WaitlistedPlayers: view.WaitlistedPlayers,
	}

	if view.UserParticipation != nil {
		response.UserParticipation = &participationResponse{
			Status:           string(view.UserParticipation.Status),
			WaitlistPosition: view.UserParticipation.WaitlistPosition,
			JoinedAt:         view.UserParticipation.JoinedAt,
		}
	}

	return response
}

func toRosterEntryResponse(entry *service.RosterEntry, waitlistPosition int) rosterEntryResponse {
	response := rosterEntryResponse{
		UserId:             entry.Participant.UserId,
		Status:             string(entry.Participant.Status),
		PositionPreference: entry.Participant.PositionPreference,
		JoinedAt:           entry.Participant.JoinedAt.Format(time.RFC3339),
		WaitlistPosition:   waitlistPosition,
	}

	if entry.User != nil {
		response.Username = entry.User.Username
		response.DisplayName = entry.User.DisplayName()
		response.SkillLevel = entry.User.SkillLevel
	}

	return response
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
