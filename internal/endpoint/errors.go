package endpoint

import "errors"

var (
	ErrConnectFailed           = errors.New("endpoint: connect failed")
	ErrWriteFailed             = errors.New("endpoint: write failed")
	ErrInvalidConnectionString = errors.New("endpoint: invalid connection string")
	ErrUnsupportedScheme       = errors.New("endpoint: unsupported connection scheme")
)
