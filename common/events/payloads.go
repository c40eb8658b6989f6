package events

// Event payloads are JSON-encoded on the wire.

type GameCreatedEvent struct {
	GameId     string `json:"game_id"`
	CreatedBy  string `json:"created_by"`
	MaxPlayers int    `json:"max_players"`
	Timestamp  int64  `json:"timestamp"`
}

type GameCompletedEvent struct {
	GameId    string `json:"game_id"`
	Timestamp int64  `json:"timestamp"`
}

type ParticipantJoinedEvent struct {
	GameId    string `json:"game_id"`
	UserId    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Status    string `json:"status"`
	JoinSeq   int64  `json:"join_seq"`
	Timestamp int64  `json:"timestamp"`
}

type ParticipantPromotedEvent struct {
	GameId    string `json:"game_id"`
	UserId    string `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
}

type ParticipantLeftEvent struct {
	GameId         string `json:"game_id"`
	UserId         string `json:"user_id"`
	PreviousStatus string `json:"previous_status"`
	Timestamp      int64  `json:"timestamp"`
}
