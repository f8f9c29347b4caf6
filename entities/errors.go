package entities

import "errors"

var (
	ErrLatitudeOutOfRange  = errors.New("latitude out of range (-90 to 90)")
	ErrLongitudeOutOfRange = errors.New("longitude out of range (-180 to 180)")
	ErrInvalidField        = errors.New("invalid field")

	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = errors.New("unauthorized")
)
