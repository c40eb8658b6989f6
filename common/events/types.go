package events

const (
	// Streams
	GameEventsStream = "GAME_EVENTS"

	// Events
	GameCreated         = "events.game.created"
	GameCompleted       = "events.game.completed"
	ParticipantJoined   = "events.game.participantJoined"
	ParticipantPromoted = "events.game.participantPromoted"
	ParticipantLeft     = "events.game.participantLeft"

	// Event Wildcards
	GameEventsWildcard = "events.game.*"
)
