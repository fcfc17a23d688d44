package user

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// User is the salesperson or customer account a sale is recorded against.
type User struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Active    bool
	CreatedAt time.Time
}
