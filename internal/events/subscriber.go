package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	commonevents "github.com/kickabout-app/kickabout/common/events"
	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/kickabout-app/kickabout/common/natsjetstream"
	"github.com/kickabout-app/kickabout/internal/repository"
)

// EventSubscriber feeds the Redis attendance view from the game event
// stream.
type EventSubscriber struct {
	natsClient     *natsjetstream.Client
	subscriber     *natsjetstream.Subscriber
	attendanceRepo *repository.AttendanceRepository
	logger         *logger.Logger
}

func NewEventSubscriber(
	natsClient *natsjetstream.Client,
	attendanceRepo *repository.AttendanceRepository,
	logger *logger.Logger,
) *EventSubscriber {
	return &EventSubscriber{
		natsClient:     natsClient,
		subscriber:     natsjetstream.NewSubscriber(natsClient),
		attendanceRepo: attendanceRepo,
		logger:         logger.With("component", "event-subscriber"),
	}
}

func (s *EventSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting event subscriptions")

	cfg := natsjetstream.ConsumerConfig{
		StreamName:   commonevents.GameEventsStream,
		ConsumerName: "attendance-game-consumer",
		Durable:      "attendance-game",
		AckPolicy:    "explicit",
	}

	if err := s.subscriber.Subscribe(ctx, cfg, s.handleGameEvents); err != nil {
		return fmt.Errorf("failed to subscribe to game events: %w", err)
	}

	s.logger.Info("All event subscriptions started")
	return nil
}

func (s *EventSubscriber) handleGameEvents(ctx context.Context, msg jetstream.Msg) error {
	subject := msg.Subject()

	s.logger.Debug("Received game event", "subject", subject)

	switch subject {
	case commonevents.ParticipantJoined:
		return s.handleParticipantJoined(ctx, msg)
	case commonevents.ParticipantLeft:
		return s.handleParticipantLeft(ctx, msg)
	default:
		return nil
	}
}

func (s *EventSubscriber) handleParticipantJoined(ctx context.Context, msg jetstream.Msg) error {
	var event commonevents.ParticipantJoinedEvent
	if err := natsjetstream.UnmarshalJSON(msg, &event); err != nil {
		s.logger.Error("Failed to unmarshal participant joined event",
			"error", err,
		)
		return fmt.Errorf("unmarshal error: %w", err)
	}

	if err := s.attendanceRepo.RecordJoin(ctx, event.UserId, event.UserName); err != nil {
		return fmt.Errorf("record join error: %w", err)
	}

	return nil
}

func (s *EventSubscriber) handleParticipantLeft(ctx context.Context, msg jetstream.Msg) error {
	var event commonevents.ParticipantLeftEvent
	if err := natsjetstream.UnmarshalJSON(msg, &event); err != nil {
		s.logger.Error("Failed to unmarshal participant left event",
			"error", err,
		)
		return fmt.Errorf("unmarshal error: %w", err)
	}

	if err := s.attendanceRepo.RecordLeave(ctx, event.UserId); err != nil {
		return fmt.Errorf("record leave error: %w", err)
	}

	return nil
}
