package output

import (
	"context"
	"io"

	"github.com/opendarc/darc/pkg/l4"
	"github.com/rs/zerolog/log"
)

const receiveBuffer = 8

// WriterOutput prints one JSON record per line to any writer, typically
// stdout.
type WriterOutput struct {
	w        io.Writer
	recvChan chan *l4.ServiceRecord
}

func NewWriterOutput(w io.Writer) *WriterOutput {
	return &WriterOutput{
		w:        w,
		recvChan: make(chan *l4.ServiceRecord, receiveBuffer),
	}
}

func (o *WriterOutput) Receive() chan<- *l4.ServiceRecord {
	return o.recvChan
}

func (o *WriterOutput) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-o.recvChan:
			encoded, err := marshalRecord(rec)
			if err != nil {
				log.Warn().Err(err).Msg("error marshaling record")
				continue
			}
			encoded = append(encoded, '\n')
			if _, err := o.w.Write(encoded); err != nil {
				return err
			}
		}
	}
}
