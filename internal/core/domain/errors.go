package domain

import "errors"

var (
	ErrSelfMessage        = errors.New("cannot send messages to yourself")
	ErrEmptyContent       = errors.New("message content is required")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username is taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMessageNotFound    = errors.New("message not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrNotMessageParty    = errors.New("not a party to this message")
	ErrNothingSaved       = errors.New("no changes were saved")
)
