package util

import "github.com/influxdata/influxdb-client-go/api/write"

// MockWriteAPI is a no-op stand-in for the InfluxDB write API, used when no
// telemetry backend is configured and in tests.
type MockWriteAPI struct{}

func (m *MockWriteAPI) WriteRecord(line string) {}

func (m *MockWriteAPI) WritePoint(point *write.Point) {}

func (m *MockWriteAPI) Flush() {}

func (m *MockWriteAPI) Close() {}

// Errors returns a channel for reading errors from async writes.  Always
// nil for the mock.
func (m *MockWriteAPI) Errors() <-chan error { return nil }
