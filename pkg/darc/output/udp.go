package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/opendarc/darc/pkg/darc/config"
	"github.com/opendarc/darc/pkg/l4"
	"github.com/rs/zerolog/log"
)

// RecordUDPOutput ships length-prefixed JSON records to one or more UDP
// destinations.
type RecordUDPOutput struct {
	dests    []config.OutputDestination
	recvChan chan *l4.ServiceRecord
	metrics  api.WriteAPI
}

func NewRecordUDPOutput(dests []config.OutputDestination, metrics api.WriteAPI) *RecordUDPOutput {
	return &RecordUDPOutput{
		dests:    dests,
		recvChan: make(chan *l4.ServiceRecord, receiveBuffer),
		metrics:  metrics,
	}
}

func (o *RecordUDPOutput) Receive() chan<- *l4.ServiceRecord {
	return o.recvChan
}

func (o *RecordUDPOutput) Start(ctx context.Context) error {
	destAddrs := make([]*net.UDPAddr, 0, len(o.dests))
	for _, dest := range o.dests {
		ips, err := net.LookupIP(dest.Host)
		if err != nil {
			return err
		}
		if len(ips) == 0 {
			return fmt.Errorf("no IPs returned for %s", dest.Host)
		}

		destAddr := &net.UDPAddr{IP: ips[0], Port: dest.Port}
		destAddrs = append(destAddrs, destAddr)
		log.Info().IPAddr("dest_ip", destAddr.IP).Int("port", dest.Port).Msg("record output starting")
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return err
	}
	defer conn.Close()

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

			var msgBuf bytes.Buffer
			if err := binary.Write(&msgBuf, binary.LittleEndian, uint16(len(encoded))); err != nil {
				log.Warn().Err(err).Msg("error encoding header size")
				continue
			}
			if _, err := msgBuf.Write(encoded); err != nil {
				log.Warn().Err(err).Msg("error writing encoded message")
				continue
			}

			success := true
			var bytesWritten int
			for _, destAddr := range destAddrs {
				bytesWritten, err = conn.WriteToUDP(msgBuf.Bytes(), destAddr)
				if err != nil {
					log.Error().Err(err).Msg("error writing")
					success = false
				}
			}

			go o.metrics.WritePoint(influxdb2.NewPoint("record.sent",
				map[string]string{
					"service": strconv.Itoa(int(rec.Service)),
				},
				map[string]interface{}{
					"bytes_written":  bytesWritten,
					"payload_length": len(rec.Payload),
					"encoded_length": len(encoded),
					"sent": func() int {
						if success {
							return 1
						}
						return 0
					}(),
				}, time.Now()))
		}
	}
}
