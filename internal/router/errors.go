package router

import "errors"

var (
	ErrInvalidMessage     = errors.New("router: invalid message")
	ErrProtocolUndefined  = errors.New("router: no dialect entry for message")
	ErrUnknownEndpoint    = errors.New("router: unknown endpoint key")
	ErrRouterStopped      = errors.New("router: stopped")
)
