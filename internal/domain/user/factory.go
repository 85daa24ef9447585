package user

import (
	"time"

	"github.com/google/uuid"
)

// NewFromRegisterRequest builds a persistable record from a validated
// registration. The password hash and stored image reference are produced
// upstream (hasher, image store) and passed in already final.
func NewFromRegisterRequest(req RegisterRequest, passwordHash, image string) User {
	now := time.Now().UTC()

	return User{
		ID:             uuid.NewString(),
		Email:          req.Email,
		FullName:       req.FullName,
		PasswordHash:   passwordHash,
		Location:       req.Location,
		UserType:       req.UserType,
		FoodPreference: req.FoodPreference,
		Image:          image,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
