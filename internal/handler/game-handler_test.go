package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/kickabout-app/kickabout/common/models"
	"github.com/kickabout-app/kickabout/internal/repository"
	"github.com/kickabout-app/kickabout/internal/service"
)

type stubAdmissionService struct {
	joinResult  *service.JoinResult
	joinErr     *apperrors.AppError
	leaveResult *service.LeaveResult
	leaveErr    *apperrors.AppError
	roster      *service.Roster
	rosterErr   *apperrors.AppError

	lastGameID     string
	lastUserID     string
	lastPreference string
}

func (s *stubAdmissionService) Join(ctx context.Context, gameID, userID, positionPreference string) (*service.JoinResult, *apperrors.AppError) {
	s.lastGameID = gameID
	s.lastUserID = userID
	s.lastPreference = positionPreference
	return s.joinResult, s.joinErr
}

func (s *stubAdmissionService) Leave(ctx context.Context, gameID, userID string) (*service.LeaveResult, *apperrors.AppError) {
	s.lastGameID = gameID
	s.lastUserID = userID
	return s.leaveResult, s.leaveErr
}

func (s *stubAdmissionService) ListParticipants(ctx context.Context, gameID string) (*service.Roster, *apperrors.AppError) {
	s.lastGameID = gameID
	return s.roster, s.rosterErr
}

func (s *stubAdmissionService) ParticipationStatus(ctx context.Context, gameID, userID string) (*service.ParticipationView, *apperrors.AppError) {
	return nil, nil
}

type stubGameService struct {
	created   *models.Game
	createErr *apperrors.AppError
	views     []service.GameView
	listErr   *apperrors.AppError
	userGames []service.UserGameView

	lastCreateRequest service.CreateGameRequest
	lastQuery         service.GamesQuery
}

func (s *stubGameService) CreateGame(ctx context.Context, req service.CreateGameRequest) (*models.Game, *apperrors.AppError) {
	s.lastCreateRequest = req
	return s.created, s.createErr
}

func (s *stubGameService) ListGames(ctx context.Context, query service.GamesQuery) ([]service.GameView, *apperrors.AppError) {
	s.lastQuery = query
	return s.views, s.listErr
}

func (s *stubGameService) GetUserGames(ctx context.Context, userID string, status models.ParticipantStatus) ([]service.UserGameView, *apperrors.AppError) {
	return s.userGames, nil
}

func (s *stubGameService) CompleteExpiredGames(ctx context.Context) (int, *apperrors.AppError) {
	return 0, nil
}

type stubActivityReader struct {
	players []repository.PlayerActivity
	err     error
}

func (s *stubActivityReader) TopPlayers(ctx context.Context, limit int64) ([]repository.PlayerActivity, error) {
	return s.players, s.err
}

func newTestRouter(games *stubGameService, admission *stubAdmissionService, activity *stubActivityReader) *mux.Router {
	if activity == nil {
		activity = &stubActivityReader{}
	}

	h := NewGameHandler(games, admission, activity, logger.New(logger.Config{Level: "error"}))
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router *mux.Router, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestJoinGameConfirmed(t *testing.T) {
	admission := &stubAdmissionService{
		joinResult: &service.JoinResult{
			GameId:    "g1",
			GameTitle: "Sunday League",
			Status:    models.ParticipantConfirmed,
		},
	}
	router := newTestRouter(&stubGameService{}, admission, nil)

	recorder := doRequest(t, router, http.MethodPost,
		"/api/games/g1/join?user_id=alice", `{"position_preference":"Midfielder"}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if admission.lastGameID != "g1" || admission.lastUserID != "alice" {
		t.Fatalf("service called with game %q user %q", admission.lastGameID, admission.lastUserID)
	}
	if admission.lastPreference != "Midfielder" {
		t.Fatalf("preference = %q, want Midfielder", admission.lastPreference)
	}

	var body map[string]interface{}
	decodeBody(t, recorder, &body)
	if body["status"] != "confirmed" {
		t.Fatalf("status field = %v, want confirmed", body["status"])
	}
	if !strings.Contains(body["message"].(string), "Sunday League") {
		t.Fatalf("message %q should name the game", body["message"])
	}
}

func TestJoinGameWaitlisted(t *testing.T) {
	admission := &stubAdmissionService{
		joinResult: &service.JoinResult{
			GameId:           "g1",
			GameTitle:        "Sunday League",
			Status:           models.ParticipantWaitlisted,
			WaitlistPosition: 3,
		},
	}
	router := newTestRouter(&stubGameService{}, admission, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/games/g1/join?user_id=alice", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var body map[string]interface{}
	decodeBody(t, recorder, &body)
	if body["waitlist_position"] != float64(3) {
		t.Fatalf("waitlist_position = %v, want 3", body["waitlist_position"])
	}
	if !strings.Contains(body["message"].(string), "#3") {
		t.Fatalf("message %q should include the queue position", body["message"])
	}
}

func TestJoinGameErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperrors.AppError
		wantStatus int
	}{
		{"not found", apperrors.New(apperrors.CodeNotFound, "game missing"), http.StatusNotFound},
		{"not open", apperrors.New(apperrors.CodeInvalidState, "game closed"), http.StatusBadRequest},
		{"skill gate", apperrors.New(apperrors.CodePolicyViolation, "skill mismatch"), http.StatusBadRequest},
		{"duplicate", apperrors.New(apperrors.CodeConflict, "already joined"), http.StatusConflict},
		{"contention", apperrors.New(apperrors.CodeTransactionError, "busy"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubGameService{}, &stubAdmissionService{joinErr: tt.err}, nil)

			recorder := doRequest(t, router, http.MethodPost, "/api/games/g1/join?user_id=alice", "")
			if recorder.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}
		})
	}
}

func TestJoinGameRequiresUserId(t *testing.T) {
	router := newTestRouter(&stubGameService{}, &stubAdmissionService{}, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/games/g1/join", "")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestLeaveGame(t *testing.T) {
	admission := &stubAdmissionService{
		leaveResult: &service.LeaveResult{
			GameId:         "g1",
			GameTitle:      "Sunday League",
			PreviousStatus: models.ParticipantWaitlisted,
		},
	}
	router := newTestRouter(&stubGameService{}, admission, nil)

	recorder := doRequest(t, router, http.MethodDelete, "/api/games/g1/leave?user_id=alice", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var body leaveGameResponse
	decodeBody(t, recorder, &body)
	if body.PreviousStatus != "waitlisted" {
		t.Fatalf("previous_status = %q, want waitlisted", body.PreviousStatus)
	}
}

func TestLeaveGameNotRegistered(t *testing.T) {
	admission := &stubAdmissionService{
		leaveErr: apperrors.New(apperrors.CodeNotFound, "not registered"),
	}
	router := newTestRouter(&stubGameService{}, admission, nil)

	recorder := doRequest(t, router, http.MethodDelete, "/api/games/g1/leave?user_id=alice", "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
}

func TestListParticipants(t *testing.T) {
	now := time.Now().UTC()
	admission := &stubAdmissionService{
		roster: &service.Roster{
			GameId: "g1",
			Confirmed: []service.RosterEntry{
				{
					Participant: models.Participant{UserId: "alice", Status: models.ParticipantConfirmed, JoinSeq: 1, JoinedAt: now},
					User:        &models.User{UserId: "alice", Username: "alice", FirstName: "Alice", LastName: "Adams", SkillLevel: 6},
				},
			},
			Waitlisted: []service.RosterEntry{
				{
					Participant: models.Participant{UserId: "bob", Status: models.ParticipantWaitlisted, JoinSeq: 2, JoinedAt: now},
					User:        &models.User{UserId: "bob", Username: "bob", FirstName: "Bob", LastName: "Brown", SkillLevel: 4},
				},
				{
					Participant: models.Participant{UserId: "carol", Status: models.ParticipantWaitlisted, JoinSeq: 3, JoinedAt: now},
					User:        &models.User{UserId: "carol", Username: "carol", FirstName: "Carol", LastName: "Clark", SkillLevel: 5},
				},
			},
		},
	}
	router := newTestRouter(&stubGameService{}, admission, nil)

	recorder := doRequest(t, router, http.MethodGet, "/api/games/g1/participants", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var body rosterResponse
	decodeBody(t, recorder, &body)

	if body.TotalConfirmed != 1 || body.TotalWaitlisted != 2 {
		t.Fatalf("totals = %d / %d, want 1 / 2", body.TotalConfirmed, body.TotalWaitlisted)
	}
	if body.Waitlisted[0].WaitlistPosition != 1 || body.Waitlisted[1].WaitlistPosition != 2 {
		t.Fatalf("waitlist positions = %d, %d, want 1, 2",
			body.Waitlisted[0].WaitlistPosition, body.Waitlisted[1].WaitlistPosition)
	}
	if body.Confirmed[0].DisplayName != "Alice Adams" {
		t.Fatalf("display name = %q, want Alice Adams", body.Confirmed[0].DisplayName)
	}
}

func TestCreateGame(t *testing.T) {
	games := &stubGameService{
		created: &models.Game{
			GameId:          "new-game",
			Title:           "Friday Kickabout",
			Location:        "Mile End Park",
			DateTime:        time.Date(2026, 9, 4, 18, 0, 0, 0, time.UTC),
			DurationMinutes: 60,
			MaxPlayers:      10,
			SkillLevelMin:   1,
			SkillLevelMax:   10,
			Status:          models.GameStatusOpen,
			CreatedBy:       "creator",
		},
	}
	router := newTestRouter(games, &stubAdmissionService{}, nil)

	payload := `{"title":"Friday Kickabout","location":"Mile End Park","date_time":"2026-09-04T18:00:00Z","duration_minutes":60,"max_players":10}`
	recorder := doRequest(t, router, http.MethodPost, "/api/games?created_by=creator", payload)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", recorder.Code)
	}
	if games.lastCreateRequest.CreatedBy != "creator" {
		t.Fatalf("created_by = %q, want creator", games.lastCreateRequest.CreatedBy)
	}
	if !games.lastCreateRequest.DateTime.Equal(time.Date(2026, 9, 4, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("date_time = %v, want parsed RFC 3339 value", games.lastCreateRequest.DateTime)
	}

	var body gameResponse
	decodeBody(t, recorder, &body)
	if body.GameId != "new-game" {
		t.Fatalf("game_id = %q, want new-game", body.GameId)
	}
}

func TestCreateGameRejectsBadTimestamp(t *testing.T) {
	router := newTestRouter(&stubGameService{}, &stubAdmissionService{}, nil)

	payload := `{"title":"Friday Kickabout","location":"Mile End Park","date_time":"04/09/2026"}`
	recorder := doRequest(t, router, http.MethodPost, "/api/games?created_by=creator", payload)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestListGamesParsesQuery(t *testing.T) {
	games := &stubGameService{views: []service.GameView{}}
	router := newTestRouter(games, &stubAdmissionService{}, nil)

	recorder := doRequest(t, router, http.MethodGet,
		"/api/games?status=open&skill_min=3&skill_max=8&limit=5&user_id=alice", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	query := games.lastQuery
	if query.Status != models.GameStatusOpen || query.UserId != "alice" || query.Limit != 5 {
		t.Fatalf("query = %+v, want status open, user alice, limit 5", query)
	}
	if query.SkillMin == nil || *query.SkillMin != 3 || query.SkillMax == nil || *query.SkillMax != 8 {
		t.Fatalf("skill bounds = %v / %v, want 3 / 8", query.SkillMin, query.SkillMax)
	}
}

func TestListGamesRejectsBadLimit(t *testing.T) {
	router := newTestRouter(&stubGameService{}, &stubAdmissionService{}, nil)

	recorder := doRequest(t, router, http.MethodGet, "/api/games?limit=lots", "")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestActivePlayers(t *testing.T) {
	activity := &stubActivityReader{
		players: []repository.PlayerActivity{
			{UserId: "alice", DisplayName: "Alice Adams", GamesJoined: 12},
			{UserId: "bob", DisplayName: "Bob Brown", GamesJoined: 7},
		},
	}
	router := newTestRouter(&stubGameService{}, &stubAdmissionService{}, activity)

	recorder := doRequest(t, router, http.MethodGet, "/api/stats/active-players?limit=2", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var body struct {
		Players []repository.PlayerActivity `json:"players"`
		Count   int                         `json:"count"`
	}
	decodeBody(t, recorder, &body)
	if body.Count != 2 || body.Players[0].UserId != "alice" {
		t.Fatalf("body = %+v, want two players led by alice", body)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubGameService{}, &stubAdmissionService{}, nil)

	recorder := doRequest(t, router, http.MethodGet, "/health", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
}
