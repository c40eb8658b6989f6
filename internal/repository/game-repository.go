package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kickabout-app/kickabout/common/database"
	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/models"
)

type GameFilter struct {
	Status   models.GameStatus
	SkillMin *int
	SkillMax *int
	Limit    int32
}

type GameRepository interface {
	Create(ctx context.Context, game *models.Game) *apperrors.AppError
	GetById(ctx context.Context, gameID string) (*models.Game, *apperrors.AppError)
	List(ctx context.Context, filter GameFilter) ([]models.Game, *apperrors.AppError)
	CompleteGame(ctx context.Context, game *models.Game) *apperrors.AppError
}

type gameRepo struct {
	db *database.DynamoDBClient
}

func NewGameRepository(db *database.DynamoDBClient) GameRepository {
	return &gameRepo{db: db}
}

func (r *gameRepo) Create(ctx context.Context, game *models.Game) *apperrors.AppError {
	game.PK = models.GamePK(game.GameId)
	game.SK = models.GameMetaSK()
	game.GSI1PK = models.GameStatusGSI1PK(game.Status)
	game.GSI1SK = models.GameDateGSI1SK(game.DateTime.UTC().Format(time.RFC3339))
	game.CreatedAt = time.Now().UTC()
	game.UpdatedAt = game.CreatedAt

	item, err := attributevalue.MarshalMap(game)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal game")
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})

	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create game")
	}

	return nil
}

func (r *gameRepo) GetById(ctx context.Context, gameID string) (*models.Game, *apperrors.AppError) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GamePK(gameID)},
			"SK": &types.AttributeValueMemberS{Value: models.GameMetaSK()},
		},
	})

	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get game")
	}

	if result.Item == nil {
		return nil, nil
	}

	var game models.Game
	if err := attributevalue.UnmarshalMap(result.Item, &game); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal game")
	}

	return &game, nil
}

// List queries games by status ordered by date, optionally filtered down to
// games whose skill range overlaps the requested one.
func (r *gameRepo) List(ctx context.Context, filter GameFilter) ([]models.Game, *apperrors.AppError) {
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: models.GameStatusGSI1PK(filter.Status)},
	}

	var filters []string
	if filter.SkillMin != nil {
		filters = append(filters, "skill_level_max >= :skillMin")
		values[":skillMin"] = &types.AttributeValueMemberN{Value: strconv.Itoa(*filter.SkillMin)}
	}
	if filter.SkillMax != nil {
		filters = append(filters, "skill_level_min <= :skillMax")
		values[":skillMax"] = &types.AttributeValueMemberN{Value: strconv.Itoa(*filter.SkillMax)}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.db.Table()),
		IndexName:                 aws.String("GSI1"),
		KeyConditionExpression:    aws.String("GSI1PK = :status"),
		ExpressionAttributeValues: values,
	}
	if len(filters) > 0 {
		input.FilterExpression = aws.String(strings.Join(filters, " AND "))
	}
	if filter.Limit > 0 {
		input.Limit = aws.Int32(filter.Limit)
	}

	result, err := r.db.Client.Query(ctx, input)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list games")
	}

	games := make([]models.Game, 0, len(result.Items))
	for _, item := range result.Items {
		var game models.Game
		if err := attributevalue.UnmarshalMap(item, &game); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal game")
		}
		games = append(games, game)
	}

	return games, nil
}

// CompleteGame transitions an open game to completed. The version condition
// keeps the transition serialized with in-flight joins and leaves on the
// same game.
func (r *gameRepo) CompleteGame(ctx context.Context, game *models.Game) *apperrors.AppError {
	now := time.Now().UTC()

	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GamePK(game.GameId)},
			"SK": &types.AttributeValueMemberS{Value: models.GameMetaSK()},
		},
		UpdateExpression: aws.String("SET #status = :completed, GSI1PK = :gsi1pk, version = :newVersion, updated_at = :now"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed":  &types.AttributeValueMemberS{Value: string(models.GameStatusCompleted)},
			":gsi1pk":     &types.AttributeValueMemberS{Value: models.GameStatusGSI1PK(models.GameStatusCompleted)},
			":open":       &types.AttributeValueMemberS{Value: string(models.GameStatusOpen)},
			":version":    &types.AttributeValueMemberN{Value: strconv.FormatInt(game.Version, 10)},
			":newVersion": &types.AttributeValueMemberN{Value: strconv.FormatInt(game.Version+1, 10)},
			":now":        &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("#status = :open AND version = :version"),
	})

	if err != nil {
		if database.IsConditionalCancellation(err) {
			return apperrors.Wrap(err, apperrors.CodeTransactionConflict,
				fmt.Sprintf("game %s changed concurrently", game.GameId))
		}
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to complete game")
	}

	return nil
}
