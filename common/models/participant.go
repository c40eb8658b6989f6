package models

import (
	"fmt"
	"time"
)

type Participant struct {
	GameId             string            `dynamodbav:"game_id"`
	UserId             string            `dynamodbav:"user_id"`
	Status             ParticipantStatus `dynamodbav:"status"`
	PositionPreference string            `dynamodbav:"position_preference,omitempty"`
	JoinSeq            int64             `dynamodbav:"join_seq"`
	JoinedAt           time.Time         `dynamodbav:"joined_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`

	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
}

type ParticipantStatus string

const (
	ParticipantConfirmed  ParticipantStatus = "confirmed"
	ParticipantWaitlisted ParticipantStatus = "waitlisted"

	// Reserved for an external workflow. Join/Leave never produce it.
	ParticipantDeclined ParticipantStatus = "declined"
)

var positionPreferences = map[string]bool{
	"Goalkeeper": true,
	"Defender":   true,
	"Midfielder": true,
	"Forward":    true,
	"Any":        true,
}

func ValidPositionPreference(preference string) bool {
	return preference == "" || positionPreferences[preference]
}

// Key handlers
func ParticipantSK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func UserGSI1PK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func ParticipantGameGSI1SK(gameID string) string {
	return fmt.Sprintf("GAME#%s", gameID)
}
