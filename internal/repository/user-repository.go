package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kickabout-app/kickabout/common/database"
	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/models"
)

// UserRepository reads profiles written by the account system.
type UserRepository interface {
	GetById(ctx context.Context, userID string) (*models.User, *apperrors.AppError)
}

type userRepo struct {
	db *database.DynamoDBClient
}

func NewUserRepository(db *database.DynamoDBClient) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetById(ctx context.Context, userID string) (*models.User, *apperrors.AppError) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: models.UserProfileSK()},
		},
	})

	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get user")
	}

	if result.Item == nil {
		return nil, nil
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal user")
	}

	return &user, nil
}
