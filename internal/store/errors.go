package store

import "errors"

var (
	ErrRequestNotFound = errors.New("request not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidState    = errors.New("invalid order state")
	ErrNotApproved     = errors.New("phone number not approved")
	ErrBadCredential   = errors.New("invalid credential")
	ErrSessionNotFound = errors.New("session not found")
	ErrAlreadyExists   = errors.New("already exists")
)
