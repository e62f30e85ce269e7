package queue

import (
	"fmt"
	"strconv"

	"github.com/erauner12/listsync/internal/customer"
)

// Operation is the change kind recorded for a queued customer
type Operation string

const (
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// ParseOperation validates an operation name
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OperationUpdate, OperationDelete:
		return Operation(s), nil
	default:
		return "", fmt.Errorf("unknown queue operation %q", s)
	}
}

// Item is one pending change for one customer on one remote list.
// OverruledOperation and Processed are written by the export run; the rest
// belongs to the queue.
type Item struct {
	CustomerID int64
	ListID     string
	Email      string
	Operation  Operation
	QueuedAtMs int64
	// Seq changes on every enqueue; Complete only removes the fetched version
	Seq int64

	// Customer is nil when the customer row no longer exists
	Customer *customer.Customer

	OverruledOperation Operation
	Processed          bool
}

// LocalID is the customer id as a string. It doubles as the batch operation id.
func (i *Item) LocalID() string {
	return strconv.FormatInt(i.CustomerID, 10)
}

// EffectiveOperation returns the overruled operation when one was set
func (i *Item) EffectiveOperation() Operation {
	if i.OverruledOperation != "" {
		return i.OverruledOperation
	}
	return i.Operation
}
