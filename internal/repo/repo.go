package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserAlreadyExist = errors.New("user already exist")
)

// GormRepo is the credential store. One row per user, the currently valid
// refresh token lives on the user record itself.
type GormRepo struct {
	DB *gorm.DB
}
