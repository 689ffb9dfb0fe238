package util

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRegistered  = errors.New("email already registered")
	ErrPermissionDenied = errors.New("permission denied")
	ErrRoadmapNotFound  = errors.New("roadmap not found")
	ErrStepNotFound     = errors.New("step not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrValidation       = errors.New("validation failed")
)
