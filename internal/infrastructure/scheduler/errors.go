package scheduler

import "errors"

var (
	// ErrSupervisorNotRunning is returned when triggering work on a stopped supervisor
	ErrSupervisorNotRunning = errors.New("scheduler: supervisor is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("scheduler: invalid supervisor configuration")
)
