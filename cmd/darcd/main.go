package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/opendarc/darc/pkg/darc"
	"github.com/opendarc/darc/pkg/darc/config"
	"github.com/opendarc/darc/pkg/darc/output"
	"github.com/opendarc/darc/pkg/darc/source"
	fileSource "github.com/opendarc/darc/pkg/darc/source/file"
	"github.com/opendarc/darc/pkg/l3"
	"github.com/opendarc/darc/pkg/monitor"
	"github.com/opendarc/darc/pkg/util"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "darc.yaml", "YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()
	if *debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	configContents, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading config file")
	}
	var cfg config.Config
	if err := yaml.Unmarshal(configContents, &cfg); err != nil {
		log.Fatal().Err(err).Msg("error unmarshaling yaml file")
	}

	format := source.FormatPacked
	if cfg.Format != "" {
		format = source.Format(cfg.Format)
	}

	var src source.Source
	switch cfg.Input {
	case "", "-":
		log.Info().Str("input", "stdin").Msg("reading bits...")
		src = source.NewReaderSource(os.Stdin, format, cfg.ReadSize)
	default:
		log.Info().Str("input", cfg.Input).Msg("reading bits...")
		src, err = fileSource.NewFileSource(cfg.Input, format, cfg.ReadSize, cfg.ReadDelay)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open input")
		}
	}

	var writeAPI api.WriteAPI = &util.MockWriteAPI{}
	if cfg.InfluxDB.Host != "" {
		writeAPI = influxdb2.NewClient(cfg.InfluxDB.Host, "").WriteAPI(cfg.InfluxDB.Organization, cfg.InfluxDB.Bucket)
	}

	services := make([]l3.ServiceID, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		services = append(services, l3.ServiceID(s))
	}

	outputs := []darc.Output{output.NewWriterOutput(os.Stdout)}
	if len(cfg.OutputDestinations) > 0 {
		outputs = append(outputs, output.NewRecordUDPOutput(cfg.OutputDestinations, writeAPI))
	}

	decOpts := []darc.DecoderOption{
		darc.WithInfluxDB(writeAPI),
		darc.WithLogger(log.Logger),
	}
	if cfg.Monitor.Port > 0 {
		decOpts = append(decOpts, darc.WithMonitor(monitor.NewServer(cfg.Monitor.Port, cfg.Monitor.UpdateInterval)))
	}

	decoder, err := darc.NewDecoder(src,
		darc.Options{
			BICErrorTolerance:  cfg.BICErrorTolerance,
			ResyncMissLimit:    cfg.ResyncMissLimit,
			GroupTimeoutBlocks: cfg.GroupTimeoutBlocks,
			FrameCorrection:    cfg.FrameCorrection,
			Services:           services,
			Outputs:            outputs,
		}, decOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create decoder")
	}

	ctx, cancel := context.WithCancel(context.Background())
	eg, ctx := errgroup.WithContext(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {
		select {
		case <-sigChan:
		case <-ctx.Done():
		}
		return decoder.Stop()
	})

	eg.Go(func() error {
		// Input exhaustion is normal termination; release the signal
		// handler as well.
		defer cancel()
		return decoder.Start(ctx)
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}
