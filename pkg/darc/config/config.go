package config

import "time"

type Config struct {
	// Input is a path to a bit dump, or "-" for stdin.
	Input string `yaml:"input"`
	// Format is "packed" (8 bits per byte, MSB first) or "bits" (one bit
	// per byte, SDR toolchain convention).
	Format    string        `yaml:"format"`
	ReadSize  int           `yaml:"read_size"`
	ReadDelay time.Duration `yaml:"read_delay"`

	BICErrorTolerance  int  `yaml:"bic_error_tolerance"`
	ResyncMissLimit    int  `yaml:"resync_miss_limit"`
	GroupTimeoutBlocks int  `yaml:"group_timeout_blocks"`
	FrameCorrection    bool `yaml:"frame_correction"`

	// Services is an optional allow-list of service identification codes.
	Services []int `yaml:"services,flow"`

	OutputDestinations []OutputDestination `yaml:"output_destinations"`

	Monitor struct {
		Port           int           `yaml:"port"`
		UpdateInterval time.Duration `yaml:"update_interval_ms"`
	} `yaml:"monitor"`

	InfluxDB struct {
		Host         string `yaml:"host"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
}

type OutputDestination struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}
