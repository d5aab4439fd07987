package service

import (
	"errors"
	"fmt"
)

type ErrRunQueueFull struct {
	Capacity int
}

func (e ErrRunQueueFull) Error() string {
	return fmt.Sprintf("run queue is full (%d waiting)", e.Capacity)
}

func NewErrRunQueueFull(capacity int) *ErrRunQueueFull {
	return &ErrRunQueueFull{Capacity: capacity}
}

// RunCancelError is returned when a run cannot be cancelled because it is
// neither queued nor running.
type RunCancelError struct {
	RunUUID string
}

func (rce RunCancelError) Error() string {
	return "run " + rce.RunUUID + " is not queued or running"
}

var (
	ErrInvalidAPIKey  = errors.New("invalid api key")
	ErrInvalidSecret  = errors.New("invalid secret name")
	ErrSecretStoreOff = errors.New("secret store is not configured; set SIMPLEBUILD_SECRET_KEY")
)
