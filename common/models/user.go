package models

import (
	"fmt"
	"time"
)

// User rows are written by the account system. This service only reads them
// to validate joiners.
type User struct {
	UserId     string    `dynamodbav:"user_id"`
	Username   string    `dynamodbav:"username"`
	FirstName  string    `dynamodbav:"first_name"`
	LastName   string    `dynamodbav:"last_name"`
	SkillLevel int       `dynamodbav:"skill_level"`
	IsActive   bool      `dynamodbav:"is_active"`
	CreatedAt  time.Time `dynamodbav:"created_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

func (u *User) DisplayName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

// Key handlers
func UserPK(userId string) string {
	return fmt.Sprintf("USER#%s", userId)
}

func UserProfileSK() string {
	return "PROFILE"
}

func ExtractUserID(pk string) (string, error) {
	if len(pk) < 6 || pk[:5] != "USER#" {
		return "", fmt.Errorf("invalid user PK format: %s", pk)
	}
	return pk[5:], nil
}
