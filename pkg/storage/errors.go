package storage

import "errors"

var (
	ErrDBConnection   = errors.New("database connection error")
	ErrDBQuery        = errors.New("database query error")
	ErrCreate         = errors.New("create error")
	ErrDelete         = errors.New("delete error")
	ErrInvalidVersion = errors.New("invalid version")
)
