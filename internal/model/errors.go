package model

import "errors"

var (
	// ErrNotFound is returned by stores when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when an article with the same identity key is already stored.
	ErrDuplicateKey = errors.New("article with this identity key already exists")
)
