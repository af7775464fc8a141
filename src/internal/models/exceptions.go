package models

import "errors"

var (
	ErrRedisGet    = errors.New("redis get error")
	ErrRedisSet    = errors.New("redis set error")
	ErrRedisDelete = errors.New("redis delete error")
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionInactive = errors.New("session inactive")
	ErrSessionCreating = errors.New("error creating session")
	ErrSessionUpdating = errors.New("error updating session")
)

var (
	ErrDatabaseQuery  = errors.New("database query error")
	ErrDatabaseInsert = errors.New("database insert error")
	ErrDatabaseUpdate = errors.New("database update error")
	ErrDatabaseDelete = errors.New("database delete error")
	ErrRecordNotFound = errors.New("record not found")
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("access forbidden")
	ErrInvalidParams = errors.New("invalid parameters")
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserInactive    = errors.New("user account is inactive")
	ErrDuplicateUser   = errors.New("username or email already exists")
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidRole     = errors.New("invalid member role")
)
