package model

import "errors"

var (
	// ErrDuplicateColumnName is returned when a table contains duplicate column names
	ErrDuplicateColumnName = errors.New("duplicate column name")
	// ErrColumnNotFound is returned when a required column is missing from a table
	ErrColumnNotFound = errors.New("column not found")
	// ErrUnknownFormat is returned when an output format name is not recognized
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrUnknownCompression is returned when a compression name is not recognized
	ErrUnknownCompression = errors.New("unknown compression type")
)
