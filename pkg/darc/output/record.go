// Package output delivers decoded service records to external consumers as
// JSON, either to a writer or over UDP.
package output

import (
	"encoding/hex"
	"encoding/json"

	"github.com/opendarc/darc/pkg/l4"
)

type recordJSON struct {
	Service  uint8  `json:"service"`
	Group    uint16 `json:"group"`
	Payload  string `json:"payload"`
	Degraded bool   `json:"degraded"`
	Link     *uint8 `json:"link,omitempty"`
	Data     string `json:"data,omitempty"`
}

func marshalRecord(rec *l4.ServiceRecord) ([]byte, error) {
	r := recordJSON{
		Service:  uint8(rec.Service),
		Group:    rec.GroupNumber,
		Payload:  hex.EncodeToString(rec.Payload),
		Degraded: rec.Degraded,
	}
	if rec.Header != nil {
		link := rec.Header.Link
		r.Link = &link
		r.Data = hex.EncodeToString(rec.Header.Data)
	}
	return json.Marshal(r)
}
