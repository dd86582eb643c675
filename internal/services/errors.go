package services

import "errors"

// Service errors
var (
	ErrNoSnapshot       = errors.New("no data snapshot loaded")
	ErrReloadInProgress = errors.New("snapshot reload already in progress")
)
