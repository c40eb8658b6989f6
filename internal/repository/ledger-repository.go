package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kickabout-app/kickabout/common/database"
	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/models"
)

// LedgerRepository commits membership changes to the participant ledger.
// Every commit rides a single TransactWriteItems call conditioned on the
// game meta row's version attribute, so join and leave sequences on the
// same game are serialized while different games never contend. A failed
// condition surfaces as CodeTransactionConflict and the caller retries its
// whole read-decide-commit sequence.
type LedgerRepository interface {
	AppendParticipant(ctx context.Context, game *models.Game, participant *models.Participant) *apperrors.AppError
	RemoveParticipant(ctx context.Context, game *models.Game, departing *models.Participant, promoted *models.Participant) *apperrors.AppError
}

type ledgerRepo struct {
	db *database.DynamoDBClient
	tx database.TransactionRepository
}

func NewLedgerRepository(db *database.DynamoDBClient, tx database.TransactionRepository) LedgerRepository {
	return &ledgerRepo{db: db, tx: tx}
}

// AppendParticipant inserts a participant row and advances the game meta
// counters in one transaction. The participant's join sequence is taken from
// the meta row snapshot the caller decided on; the version condition rejects
// the commit if any other writer touched the game since that snapshot, and
// the capacity condition rejects a confirmed insert that would overshoot
// max_players.
func (r *ledgerRepo) AppendParticipant(
	ctx context.Context,
	game *models.Game,
	participant *models.Participant,
) *apperrors.AppError {
	now := time.Now().UTC()

	participant.JoinSeq = game.NextJoinSeq
	participant.JoinedAt = now
	participant.PK = models.GamePK(participant.GameId)
	participant.SK = models.ParticipantSK(participant.UserId)
	participant.GSI1PK = models.UserGSI1PK(participant.UserId)
	participant.GSI1SK = models.ParticipantGameGSI1SK(participant.GameId)

	item, err := attributevalue.MarshalMap(participant)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal participant")
	}

	confirmedDelta := 0
	metaCondition := "version = :version"
	if participant.Status == models.ParticipantConfirmed {
		confirmedDelta = 1
		metaCondition += " AND confirmed_count < max_players"
	}

	transactionBuilder := database.NewTransactionBuilder()
	transactionBuilder.AddPut(types.Put{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	transactionBuilder.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key:       r.gameMetaKey(game.GameId),
		UpdateExpression: aws.String(
			"SET next_join_seq = :nextSeq, confirmed_count = confirmed_count + :delta, version = :newVersion, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":nextSeq":    &types.AttributeValueMemberN{Value: strconv.FormatInt(game.NextJoinSeq+1, 10)},
			":delta":      &types.AttributeValueMemberN{Value: strconv.Itoa(confirmedDelta)},
			":version":    &types.AttributeValueMemberN{Value: strconv.FormatInt(game.Version, 10)},
			":newVersion": &types.AttributeValueMemberN{Value: strconv.FormatInt(game.Version+1, 10)},
			":now":        &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: aws.String(metaCondition),
	})

	return r.execute(ctx, transactionBuilder, game.GameId)
}

// RemoveParticipant deletes the departing row and, when a confirmed slot was
// vacated and a promotion candidate exists, flips the candidate to confirmed
// in the same transaction. Conditions pin the departing row's status and the
// candidate's waitlisted status, so a racing leave that already promoted the
// candidate cancels the whole commit rather than double-promoting.
func (r *ledgerRepo) RemoveParticipant(
	ctx context.Context,
	game *models.Game,
	departing *models.Participant,
	promoted *models.Participant,
) *apperrors.AppError {
	now := time.Now().UTC()

	transactionBuilder := database.NewTransactionBuilder()
	transactionBuilder.AddDelete(types.Delete{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GamePK(departing.GameId)},
			"SK": &types.AttributeValueMemberS{Value: models.ParticipantSK(departing.UserId)},
		},
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(departing.Status)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :status"),
	})

	confirmedDelta := 0
	if departing.Status == models.ParticipantConfirmed && promoted == nil {
		confirmedDelta = -1
	}

	if promoted != nil {
		transactionBuilder.AddUpdate(types.Update{
			TableName: aws.String(r.db.Table()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: models.GamePK(promoted.GameId)},
				"SK": &types.AttributeValueMemberS{Value: models.ParticipantSK(promoted.UserId)},
			},
			UpdateExpression: aws.String("SET #status = :confirmed"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":confirmed":  &types.AttributeValueMemberS{Value: string(models.ParticipantConfirmed)},
				":waitlisted": &types.AttributeValueMemberS{Value: string(models.ParticipantWaitlisted)},
			},
			ConditionExpression: aws.String("attribute_exists(PK) AND #status = :waitlisted"),
		})
	}

	transactionBuilder.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key:       r.gameMetaKey(game.GameId),
		UpdateExpression: aws.String(
			"SET confirmed_count = confirmed_count + :delta, version = :newVersion, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta":      &types.AttributeValueMemberN{Value: strconv.Itoa(confirmedDelta)},
			":version":    &types.AttributeValueMemberN{Value: strconv.FormatInt(game.Version, 10)},
			":newVersion": &types.AttributeValueMemberN{Value: strconv.FormatInt(game.Version+1, 10)},
			":now":        &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("version = :version"),
	})

	return r.execute(ctx, transactionBuilder, game.GameId)
}

func (r *ledgerRepo) gameMetaKey(gameID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: models.GamePK(gameID)},
		"SK": &types.AttributeValueMemberS{Value: models.GameMetaSK()},
	}
}

func (r *ledgerRepo) execute(ctx context.Context, transactionBuilder *database.TransactionBuilder, gameID string) *apperrors.AppError {
	if err := r.tx.Execute(ctx, transactionBuilder); err != nil {
		if database.IsConditionalCancellation(err) {
			return apperrors.Wrap(err, apperrors.CodeTransactionConflict,
				fmt.Sprintf("ledger changed concurrently for game %s", gameID))
		}
		return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to commit ledger transaction")
	}
	return nil
}
