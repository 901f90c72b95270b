package l4

import (
	"github.com/opendarc/darc/pkg/l3"
	"github.com/rs/zerolog"
)

// DemuxStats counts routing decisions.
type DemuxStats struct {
	Records  uint64
	Filtered uint64
}

// Demultiplexer turns completed data groups into service records.  Routing
// is not a filter: unknown services pass through unless an allow-list is
// configured.
type Demultiplexer struct {
	allow  map[l3.ServiceID]struct{}
	stats  DemuxStats
	logger zerolog.Logger
}

// NewDemultiplexer builds a demultiplexer.  A nil or empty allow-list
// admits every service.
func NewDemultiplexer(allow []l3.ServiceID, logger zerolog.Logger) *Demultiplexer {
	d := &Demultiplexer{logger: logger}
	if len(allow) > 0 {
		d.allow = make(map[l3.ServiceID]struct{}, len(allow))
		for _, s := range allow {
			d.allow[s] = struct{}{}
		}
	}
	return d
}

func (d *Demultiplexer) Stats() DemuxStats {
	return d.stats
}

// Route converts a completed group into a service record, or nil when the
// allow-list excludes its service.
func (d *Demultiplexer) Route(g *DataGroup) *ServiceRecord {
	if d.allow != nil {
		if _, ok := d.allow[g.Service]; !ok {
			d.stats.Filtered++
			return nil
		}
	}

	rec := &ServiceRecord{
		Service:     g.Service,
		GroupNumber: g.GroupNumber,
		Payload:     g.Payload(),
		Degraded:    g.Degraded,
	}

	if g.Service != l3.ServiceAdditionalInformation {
		if header, err := g.ParseHeader(); err == nil {
			rec.Header = header
			if !header.CRCValid {
				rec.Degraded = true
				d.logger.Debug().
					Str("service", g.Service.String()).
					Uint16("group", g.GroupNumber).
					Msg("group checksum mismatch")
			}
		} else {
			d.logger.Debug().
				Str("service", g.Service.String()).
				Uint16("group", g.GroupNumber).
				Err(err).
				Msg("group header unparsable")
		}
	}

	d.stats.Records++
	return rec
}
