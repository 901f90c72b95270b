package darc

import (
	"context"

	"github.com/opendarc/darc/pkg/l4"
)

// Output handles completed service records.
type Output interface {
	// Start receives a context and should run in a loop, terminating upon
	// ctx closing or on any errors.
	Start(ctx context.Context) error
	// Receive returns a channel that accepts service records.
	Receive() chan<- *l4.ServiceRecord
}
