package batchsync

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateOperationID indicates a second queue item for a customer already in the batch
	ErrDuplicateOperationID = errors.New("duplicate operation id in batch")

	// ErrMissingRemoteIdentity indicates an item without any email to hash
	ErrMissingRemoteIdentity = errors.New("no email address to derive remote identity from")

	// ErrMissingArchiveURL indicates errored operations but no result archive to inspect
	ErrMissingArchiveURL = errors.New("batch has errored operations but no response_body_url")

	// ErrUnknownOperation indicates a queue item with an operation the exporter cannot build
	ErrUnknownOperation = errors.New("unknown queue operation")
)

// SubmissionError means the batch could not be created; nothing was sent
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit batch: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollExhaustedError means the batch never reported finished within the check limit
type PollExhaustedError struct {
	BatchID string
	Checks  int
}

func (e *PollExhaustedError) Error() string {
	return fmt.Sprintf("batch %s not finished after %d status checks", e.BatchID, e.Checks)
}

// ArchiveFormatError means the result archive could not be decoded
type ArchiveFormatError struct {
	Reason string
	Err    error
}

func (e *ArchiveFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("result archive: %s: %v", e.Reason, e.Err)
	}
	return "result archive: " + e.Reason
}

func (e *ArchiveFormatError) Unwrap() error { return e.Err }

// TransportError means a request needed for reconciliation failed
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// OperationFailure is a single operation the provider rejected
type OperationFailure struct {
	OperationID string
	StatusCode  int
	Response    string
}

func (e *OperationFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("operation %s failed with status %d: %s", e.OperationID, e.StatusCode, e.Response)
	}
	return fmt.Sprintf("operation %s failed: %s", e.OperationID, e.Response)
}
