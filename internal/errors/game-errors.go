package errors

import (
	"fmt"

	apperrors "github.com/kickabout-app/kickabout/common/errors"
	"github.com/kickabout-app/kickabout/common/models"
)

func GameNotFoundError(gameID string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("game %s not found", gameID))
}

func UserNotFoundError(userID string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("user %s not found or inactive", userID))
}

func GameNotOpenError(status models.GameStatus) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidState,
		fmt.Sprintf("game is not open for registration (status: %s)", status))
}

func SkillLevelError(level, min, max int) *apperrors.AppError {
	return apperrors.New(apperrors.CodePolicyViolation,
		fmt.Sprintf("your skill level (%d) doesn't match game requirements (%d-%d)", level, min, max))
}

func AlreadyJoinedError(status models.ParticipantStatus) *apperrors.AppError {
	return apperrors.New(apperrors.CodeConflict,
		fmt.Sprintf("you are already %s for this game", status))
}

func NotRegisteredError(gameID string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("you are not registered for game %s", gameID))
}

func CommitContentionError(gameID string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeTransactionError,
		fmt.Sprintf("could not commit change for game %s after repeated conflicts", gameID))
}
