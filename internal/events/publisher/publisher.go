package publisher

import (
	"context"
	"fmt"
	"time"

	commonevents "github.com/kickabout-app/kickabout/common/events"
	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/kickabout-app/kickabout/common/models"
	"github.com/kickabout-app/kickabout/common/natsjetstream"
)

type EventPublisher struct {
	publisher *natsjetstream.Publisher
	logger    *logger.Logger
}

func NewEventPublisher(client *natsjetstream.Client, logger *logger.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: natsjetstream.NewPublisher(client),
		logger:    logger,
	}
}

func (p *EventPublisher) PublishParticipantJoined(
	ctx context.Context,
	participant *models.Participant,
	userName string,
) error {
	event := commonevents.ParticipantJoinedEvent{
		GameId:    participant.GameId,
		UserId:    participant.UserId,
		UserName:  userName,
		Status:    string(participant.Status),
		JoinSeq:   participant.JoinSeq,
		Timestamp: time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.ParticipantJoined, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish participant joined event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *EventPublisher) PublishParticipantPromoted(
	ctx context.Context,
	gameId, userId string,
) error {
	event := commonevents.ParticipantPromotedEvent{
		GameId:    gameId,
		UserId:    userId,
		Timestamp: time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.ParticipantPromoted, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish participant promoted event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *EventPublisher) PublishParticipantLeft(
	ctx context.Context,
	gameId, userId string,
	previousStatus models.ParticipantStatus,
) error {
	event := commonevents.ParticipantLeftEvent{
		GameId:         gameId,
		UserId:         userId,
		PreviousStatus: string(previousStatus),
		Timestamp:      time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.ParticipantLeft, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish participant left event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *EventPublisher) PublishGameCreated(ctx context.Context, game *models.Game) error {
	event := commonevents.GameCreatedEvent{
		GameId:     game.GameId,
		CreatedBy:  game.CreatedBy,
		MaxPlayers: game.MaxPlayers,
		Timestamp:  time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.GameCreated, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish game created event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *EventPublisher) PublishGameCompleted(ctx context.Context, gameId string) error {
	event := commonevents.GameCompletedEvent{
		GameId:    gameId,
		Timestamp: time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.GameCompleted, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish game completed event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
