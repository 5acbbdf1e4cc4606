package importer

import (
	"errors"
	"fmt"
)

var ErrOrderNotFound = errors.New("order not found")

// ConfigError reports a missing sheet or column; the whole operation is aborted.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// StorageError reports a failed read or write. Appended tells how many rows
// reached the destination before the failure.
type StorageError struct {
	Op       string
	Appended int
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError describes one source row that was skipped.
type ValidationError struct {
	Row     int    `json:"row"`
	OrderID string `json:"orderId,omitempty"`
	Reason  string `json:"reason"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

type Report struct {
	Count int               `json:"count"`
	Rows  []ValidationError `json:"rows"`
}

func (r *Report) add(v ValidationError) {
	r.Count++
	r.Rows = append(r.Rows, v)
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
