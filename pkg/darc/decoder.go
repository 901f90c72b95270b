// Package darc wires the decoding pipeline together: bit source, frame
// synchronizer, block decoder, group assembler, and service demultiplexer,
// each stage feeding the next over a bounded channel.
package darc

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/opendarc/darc/pkg/darc/source"
	"github.com/opendarc/darc/pkg/l2"
	"github.com/opendarc/darc/pkg/l3"
	"github.com/opendarc/darc/pkg/l4"
	"github.com/opendarc/darc/pkg/monitor"
	"github.com/opendarc/darc/pkg/util"
)

const (
	blockChanDepth  = 32
	recordChanDepth = 8
	flushEvery      = 256
	monitorWindow   = 2048
)

type Options struct {
	// BICErrorTolerance is the number of bit errors allowed in a BIC match.
	// Zero selects the default; any negative value demands an exact match.
	BICErrorTolerance int
	// ResyncMissLimit is the number of consecutive boundary misses before
	// synchronization is declared lost.  Zero selects the default.
	ResyncMissLimit int
	// GroupTimeoutBlocks abandons open groups after this many blocks
	// without progress.  Zero selects the default.
	GroupTimeoutBlocks int
	// FrameCorrection enables the vertical parity pass over whole frames.
	FrameCorrection bool
	// Services optionally restricts output to these service IDs.
	Services []l3.ServiceID
	// Outputs receive completed service records.
	Outputs []Output
}

type Decoder struct {
	src      source.Source
	opts     Options
	writeAPI api.WriteAPI
	monSrv   *monitor.Server
	logger   zerolog.Logger

	bitChan    chan *source.Segment
	blockChan  chan l2.Block
	recordChan chan *l4.ServiceRecord

	sync         *l2.Synchronizer
	blockDecoder *l2.BlockDecoder
	frame        *l2.FrameAssembler
	assembler    *l4.Assembler
	demux        *l4.Demultiplexer

	errSeries  *monitor.TimeSeries
	lockSeries *monitor.TimeSeries

	ctx    context.Context
	cancel context.CancelFunc
}

type DecoderOption func(d *Decoder) error

func WithInfluxDB(writeAPI api.WriteAPI) DecoderOption {
	return func(d *Decoder) error {
		d.writeAPI = writeAPI
		return nil
	}
}

func WithMonitor(srv *monitor.Server) DecoderOption {
	return func(d *Decoder) error {
		d.monSrv = srv
		return nil
	}
}

func WithLogger(logger zerolog.Logger) DecoderOption {
	return func(d *Decoder) error {
		d.logger = logger
		return nil
	}
}

func NewDecoder(src source.Source, opts Options, decOpts ...DecoderOption) (*Decoder, error) {
	switch {
	case opts.BICErrorTolerance == 0:
		opts.BICErrorTolerance = l2.DefaultBICErrorTolerance
	case opts.BICErrorTolerance < 0:
		opts.BICErrorTolerance = 0
	}
	if opts.ResyncMissLimit == 0 {
		opts.ResyncMissLimit = l2.DefaultResyncMissLimit
	}
	if opts.GroupTimeoutBlocks == 0 {
		opts.GroupTimeoutBlocks = l4.DefaultTimeoutBlocks
	}
	if opts.BICErrorTolerance >= l2.BICLength/2 {
		return nil, fmt.Errorf("BIC error tolerance %d out of range", opts.BICErrorTolerance)
	}
	if opts.ResyncMissLimit < 1 {
		return nil, fmt.Errorf("resync miss limit %d must be positive", opts.ResyncMissLimit)
	}
	if opts.GroupTimeoutBlocks < 1 {
		return nil, fmt.Errorf("group timeout %d blocks must be positive", opts.GroupTimeoutBlocks)
	}

	d := &Decoder{
		src:        src,
		opts:       opts,
		writeAPI:   &util.MockWriteAPI{}, // overwritten with option
		logger:     log.Logger,
		bitChan:    make(chan *source.Segment, 1),
		blockChan:  make(chan l2.Block, blockChanDepth),
		recordChan: make(chan *l4.ServiceRecord, recordChanDepth),
	}

	for _, opt := range decOpts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// SyncStats returns the synchronizer counters.  Meaningful once Start has
// been called.
func (d *Decoder) SyncStats() l2.SyncStats {
	if d.sync == nil {
		return l2.SyncStats{}
	}
	return d.sync.Stats()
}

func (d *Decoder) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.monSrv != nil {
		d.monSrv.Stop(context.TODO())
	}
	return d.src.Stop()
}

func (d *Decoder) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.sync = l2.NewSynchronizer(d.ctx, d.blockChan, d.logger,
		l2.WithBICErrorTolerance(d.opts.BICErrorTolerance),
		l2.WithResyncMissLimit(d.opts.ResyncMissLimit))
	d.blockDecoder = l2.NewBlockDecoder(d.logger)
	if d.opts.FrameCorrection {
		d.frame = l2.NewFrameAssembler(d.logger)
	}
	d.assembler = l4.NewAssembler(d.logger, l4.WithTimeoutBlocks(d.opts.GroupTimeoutBlocks))
	d.demux = l4.NewDemultiplexer(d.opts.Services, d.logger)

	if d.monSrv != nil {
		d.errSeries = monitor.NewTimeSeries("block_errors", "errors", monitorWindow, 0, 1)
		d.lockSeries = monitor.NewTimeSeries("sync_lock", "locked", monitorWindow, 0, 1)
		d.monSrv.Register("decoder", d.errSeries)
		d.monSrv.Register("decoder", d.lockSeries)
		eg.Go(func() error {
			return d.monSrv.Run(d.ctx)
		})
	}

	eg.Go(d.readBits)
	eg.Go(d.processBits)
	eg.Go(d.processBlocks)
	eg.Go(d.distributeRecords)

	for _, output := range d.opts.Outputs {
		thisOutput := output
		eg.Go(func() error {
			return thisOutput.Start(d.ctx)
		})
	}

	d.logger.Info().
		Int("bic_error_tolerance", d.opts.BICErrorTolerance).
		Int("resync_miss_limit", d.opts.ResyncMissLimit).
		Int("group_timeout_blocks", d.opts.GroupTimeoutBlocks).
		Bool("frame_correction", d.opts.FrameCorrection).
		Msg("starting")

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// readBits drives the source and closes the bit channel on exhaustion so
// the downstream stages can flush and drain.
func (d *Decoder) readBits() error {
	err := d.src.Start(d.ctx, d.bitChan)
	close(d.bitChan)
	return err
}

func (d *Decoder) processBits() error {
	var last l2.SyncStats
	for seg := range d.bitChan {
		duration := util.TimeOperationMicroseconds(func() {
			d.sync.Receive(seg.Bits)
		})

		stats := d.sync.Stats()
		if d.lockSeries != nil {
			if d.sync.Locked() {
				d.lockSeries.Append(1)
			} else {
				d.lockSeries.Append(0)
			}
		}

		go d.writeAPI.WritePoint(influxdb2.NewPoint("darc.sync.processed",
			map[string]string{
				"stage": "sync",
			},
			map[string]interface{}{
				"bits":            stats.BitsConsumed - last.BitsConsumed,
				"blocks":          stats.Blocks - last.Blocks,
				"suspect_blocks":  stats.SuspectBlocks - last.SuspectBlocks,
				"sync_acquired":   stats.Acquired - last.Acquired,
				"sync_lost":       stats.Lost - last.Lost,
				"boundary_misses": stats.BoundaryMisses - last.BoundaryMisses,
				"duration":        duration,
			}, time.Now()))
		last = stats
	}
	close(d.blockChan)
	return nil
}

func (d *Decoder) processBlocks() error {
	// Closed on every exit path, including cancellation mid-send, so
	// distributeRecords always drains out.
	defer close(d.recordChan)

	metrics := make(map[string]interface{})
	sinceFlush := 0

	flush := func() {
		if len(metrics) == 0 {
			return
		}
		go d.writeAPI.WritePoint(influxdb2.NewPoint("darc.blocks.processed",
			map[string]string{
				"stage": "decode",
			},
			metrics, time.Now()))
		metrics = make(map[string]interface{})
		sinceFlush = 0
	}

	for blk := range d.blockChan {
		decoded := d.blockDecoder.Decode(blk)

		switch decoded.FEC {
		case l2.FECCorrected:
			incMap(metrics, "corrected")
			if d.errSeries != nil {
				d.errSeries.Append(0.5)
			}
		case l2.FECUncorrectable:
			incMap(metrics, "uncorrectable")
			if d.errSeries != nil {
				d.errSeries.Append(1)
			}
		default:
			if d.errSeries != nil {
				d.errSeries.Append(0)
			}
		}
		if !decoded.CRCValid {
			incMap(metrics, "crc_mismatch")
		}
		if decoded.SyncSuspect {
			incMap(metrics, "sync_suspect")
		}

		var infoBlocks []l2.DecodedBlock
		if d.frame != nil {
			if emitted := d.frame.Push(decoded); emitted != nil {
				incMap(metrics, "frames")
				infoBlocks = emitted
			}
		} else if !decoded.BIC.IsParity() {
			infoBlocks = append(infoBlocks, decoded)
		}

		if err := d.handleInfoBlocks(infoBlocks, metrics); err != nil {
			return err
		}

		sinceFlush++
		if sinceFlush >= flushEvery {
			flush()
		}
	}

	// End of stream: anything still open will never complete.
	abandoned := d.assembler.Open()
	d.assembler.Flush()
	if abandoned > 0 {
		d.logger.Info().Int("groups", abandoned).Msg("abandoned open groups at end of stream")
		metrics["flushed_groups"] = abandoned
	}
	flush()

	return nil
}

func (d *Decoder) handleInfoBlocks(blocks []l2.DecodedBlock, metrics map[string]interface{}) error {
	for _, blk := range blocks {
		pkt, err := l3.ParsePacket(blk)
		if err != nil {
			continue
		}

		for _, group := range d.assembler.Push(pkt) {
			if group.Degraded {
				incMap(metrics, "degraded_groups")
			}
			incMap(metrics, "groups")

			rec := d.demux.Route(group)
			if rec == nil {
				incMap(metrics, "filtered_groups")
				continue
			}

			select {
			case <-d.ctx.Done():
				return d.ctx.Err()
			case d.recordChan <- rec:
			}
		}
	}
	return nil
}

func (d *Decoder) distributeRecords() error {
	for rec := range d.recordChan {
		d.logger.Debug().
			Str("service", rec.Service.String()).
			Uint16("group", rec.GroupNumber).
			Int("payload_bytes", len(rec.Payload)).
			Bool("degraded", rec.Degraded).
			Msg("record")

		skippedOutputs := 0
		for _, output := range d.opts.Outputs {
			select {
			case output.Receive() <- rec:
				// We will not wait on blocked outputs.
			default:
				skippedOutputs++
			}
		}

		go d.writeAPI.WritePoint(influxdb2.NewPoint("darc.record.emitted",
			map[string]string{
				"service": rec.Service.String(),
			},
			map[string]interface{}{
				"payload_bytes":   len(rec.Payload),
				"degraded":        boolToInt(rec.Degraded),
				"skipped_outputs": skippedOutputs,
			}, time.Now()))
	}

	// The stream is done; release the outputs and the monitor.
	d.cancel()
	return nil
}

func incMap(m map[string]interface{}, key string) {
	val := m[key]
	if v, ok := val.(int); ok {
		m[key] = v + 1
	} else {
		m[key] = 1
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
