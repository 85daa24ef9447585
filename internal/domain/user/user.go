package user

import (
	"errors"
	"time"
)

// the two enumerated field value sets
const (
	TypeDonor    = "donor"
	TypeReceiver = "receiver"

	PrefVegetarian    = "vegetarian"
	PrefNonVegetarian = "non-vegetarian"
	PrefBoth          = "both"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"fullName"`
	PasswordHash   string    `json:"-"` // never expose hash in JSON
	Location       string    `json:"location"`
	UserType       string    `json:"userType"`
	FoodPreference string    `json:"foodPreference"`
	Image          string    `json:"image"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Profile is the login payload subset: no id, no image, no password.
type Profile struct {
	Email          string `json:"email"`
	FullName       string `json:"fullName"`
	Location       string `json:"location"`
	UserType       string `json:"userType"`
	FoodPreference string `json:"foodPreference"`
}

func (u User) Profile() Profile {
	return Profile{
		Email:          u.Email,
		FullName:       u.FullName,
		Location:       u.Location,
		UserType:       u.UserType,
		FoodPreference: u.FoodPreference,
	}
}

// WithImageURL returns a copy whose image reference is rewritten to an
// absolute URL under the given base, e.g. "https://host/uploads".
func (u User) WithImageURL(base string) User {
	out := u
	out.Image = base + "/" + u.Image
	return out
}

type RegisterRequest struct {
	Email          string `form:"email" binding:"required,email"`
	FullName       string `form:"fullName" binding:"required,min=2,max=120"`
	Password       string `form:"password" binding:"required,min=6,max=72"`
	Location       string `form:"location" binding:"required,min=2,max=120"`
	UserType       string `form:"userType" binding:"required,oneof=donor receiver"`
	FoodPreference string `form:"foodPreference" binding:"required,oneof=vegetarian non-vegetarian both"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	UserType string `json:"userType" binding:"required,oneof=donor receiver"`
}

// UpdateRequest lists exactly the mutable fields. A nil pointer means
// "leave untouched"; unknown keys are rejected at the binding layer.
type UpdateRequest struct {
	Email          *string `json:"email" binding:"omitempty,email"`
	FullName       *string `json:"fullName" binding:"omitempty,min=2,max=120"`
	Password       *string `json:"password" binding:"omitempty,min=6,max=72"`
	Location       *string `json:"location" binding:"omitempty,min=2,max=120"`
	UserType       *string `json:"userType" binding:"omitempty,oneof=donor receiver"`
	FoodPreference *string `json:"foodPreference" binding:"omitempty,oneof=vegetarian non-vegetarian both"`
	Image          *string `json:"image" binding:"omitempty,min=1"`
}
