package service

import (
	"errors"
	"fmt"
)

var (
	ErrFollowSelf         = errors.New("cannot follow self")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("username already taken")
	ErrInvalidSignup      = errors.New("username and email are required")
	ErrEmptyPassword      = errors.New("password must not be empty")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidMessage  = fmt.Errorf("message text must be 1-%d characters", maxMessageRunes)

	// ErrForbidden 操作者无权操作该资源
	ErrForbidden      = errors.New("access unauthorized")
	ErrLikeOwnMessage = fmt.Errorf("%w: cannot like own message", ErrForbidden)
)
