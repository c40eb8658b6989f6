package models

import (
	"fmt"
	"time"
)

type Game struct {
	GameId          string     `dynamodbav:"game_id"`
	Title           string     `dynamodbav:"title"`
	Description     string     `dynamodbav:"description"`
	Location        string     `dynamodbav:"location"`
	DateTime        time.Time  `dynamodbav:"date_time"`
	DurationMinutes int        `dynamodbav:"duration_minutes"`
	MaxPlayers      int        `dynamodbav:"max_players"`
	SkillLevelMin   int        `dynamodbav:"skill_level_min"`
	SkillLevelMax   int        `dynamodbav:"skill_level_max"`
	Status          GameStatus `dynamodbav:"status"`
	CreatedBy       string     `dynamodbav:"created_by"`
	CreatedAt       time.Time  `dynamodbav:"created_at"`
	UpdatedAt       time.Time  `dynamodbav:"updated_at"`

	// Ledger control attributes. ConfirmedCount backs the capacity condition,
	// NextJoinSeq hands out the per-game join order, Version serializes every
	// admission and departure on the game.
	ConfirmedCount int   `dynamodbav:"confirmed_count"`
	NextJoinSeq    int64 `dynamodbav:"next_join_seq"`
	Version        int64 `dynamodbav:"version"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`

	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
}

type GameStatus string

const (
	GameStatusOpen      GameStatus = "open"
	GameStatusClosed    GameStatus = "closed"
	GameStatusCancelled GameStatus = "cancelled"
	GameStatusCompleted GameStatus = "completed"
)

func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusOpen, GameStatusClosed, GameStatusCancelled, GameStatusCompleted:
		return true
	}
	return false
}

// EndsAt is the scheduled end of play.
func (g *Game) EndsAt() time.Time {
	return g.DateTime.Add(time.Duration(g.DurationMinutes) * time.Minute)
}

// Key handlers
func GamePK(gameID string) string {
	return fmt.Sprintf("GAME#%s", gameID)
}

func GameMetaSK() string {
	return "META"
}

func GameStatusGSI1PK(status GameStatus) string {
	return fmt.Sprintf("STATUS#%s", status)
}

func GameDateGSI1SK(dateTime string) string {
	return fmt.Sprintf("DATE#%s", dateTime)
}

func ExtractGameID(pk string) (string, error) {
	if len(pk) < 6 || pk[:5] != "GAME#" {
		return "", fmt.Errorf("invalid game PK format: %s", pk)
	}
	return pk[5:], nil
}
