package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidPlan  = errors.New("invalid plan code")
	ErrPlanRequired = errors.New("plan required")
	ErrEmailTaken   = errors.New("email already registered")
	ErrLimitReached = errors.New("plan limit reached")
)
