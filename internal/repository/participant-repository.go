package repository

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kickabout-app/kickabout/common/database"
	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/models"
)

type ParticipantRepository interface {
	GetByGameAndUser(ctx context.Context, gameID, userID string) (*models.Participant, *apperrors.AppError)
	ListByGame(ctx context.Context, gameID string) ([]models.Participant, *apperrors.AppError)
	ListByUser(ctx context.Context, userID string) ([]models.Participant, *apperrors.AppError)
}

type participantRepo struct {
	db *database.DynamoDBClient
}

func NewParticipantRepository(db *database.DynamoDBClient) ParticipantRepository {
	return &participantRepo{db: db}
}

func (r *participantRepo) GetByGameAndUser(
	ctx context.Context,
	gameID, userID string,
) (*models.Participant, *apperrors.AppError) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GamePK(gameID)},
			"SK": &types.AttributeValueMemberS{Value: models.ParticipantSK(userID)},
		},
	})

	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get participant")
	}

	if result.Item == nil {
		return nil, nil
	}

	var participant models.Participant
	if err := attributevalue.UnmarshalMap(result.Item, &participant); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal participant")
	}

	return &participant, nil
}

// ListByGame returns every participant of a game in join order.
func (r *participantRepo) ListByGame(ctx context.Context, gameID string) ([]models.Participant, *apperrors.AppError) {
	result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: models.GamePK(gameID)},
			":skPrefix": &types.AttributeValueMemberS{Value: "USER#"},
		},
	})

	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list participants")
	}

	participants, appErr := unmarshalParticipants(result.Items)
	if appErr != nil {
		return nil, appErr
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinSeq < participants[j].JoinSeq
	})

	return participants, nil
}

func (r *participantRepo) ListByUser(ctx context.Context, userID string) ([]models.Participant, *apperrors.AppError) {
	result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :user AND begins_with(GSI1SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user":     &types.AttributeValueMemberS{Value: models.UserGSI1PK(userID)},
			":skPrefix": &types.AttributeValueMemberS{Value: "GAME#"},
		},
	})

	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list user participations")
	}

	return unmarshalParticipants(result.Items)
}

func unmarshalParticipants(items []map[string]types.AttributeValue) ([]models.Participant, *apperrors.AppError) {
	participants := make([]models.Participant, 0, len(items))
	for _, item := range items {
		var participant models.Participant
		if err := attributevalue.UnmarshalMap(item, &participant); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal participant")
		}
		participants = append(participants, participant)
	}
	return participants, nil
}
