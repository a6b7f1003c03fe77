package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bigbag/seatalk-reader/internal/capture"
	"github.com/bigbag/seatalk-reader/internal/config"
	"github.com/bigbag/seatalk-reader/internal/detect"
	"github.com/bigbag/seatalk-reader/internal/parmrk"
	"github.com/bigbag/seatalk-reader/internal/render"
	"github.com/bigbag/seatalk-reader/internal/seatalk"
	"github.com/bigbag/seatalk-reader/internal/serial"
	"github.com/bigbag/seatalk-reader/internal/session"
)

// loadConfig reads --config and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	if flags.Changed("port") {
		cfg.Device = portFlag
	}
	if flags.Changed("baud") {
		cfg.Baud = baudFlag
	}
	if flags.Changed("transport") {
		cfg.Transport = serial.Transport(transportFlag)
	}
	if flags.Changed("format") {
		cfg.Format = formatFlag
	}
	if flags.Changed("annotate") {
		cfg.Annotate = annotateFlag
	}
	if flags.Changed("record") {
		cfg.Record = recordFlag
	}
	if flags.Changed("mqtt") {
		cfg.MQTT.Broker = mqttFlag
	}
	if flags.Changed("idle-timeout") {
		d, err := time.ParseDuration(idleTimeoutFlag)
		if err != nil {
			return cfg, fmt.Errorf("invalid --idle-timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	lvl, _ := cfg.Level()
	log.Logger = log.Logger.Level(lvl)
	return cfg, nil
}

// buildSink assembles the configured outputs. The returned close function
// is always safe to call.
func buildSink(cfg config.Config, w io.Writer) (session.Sink, func(), error) {
	var sinks render.Multi
	switch cfg.Format {
	case config.FormatJSON:
		sinks = append(sinks, render.NewJSONWriter(w))
	default:
		sinks = append(sinks, render.NewHexWriter(w, cfg.Annotate))
	}

	closeFn := func() {}
	if cfg.MQTT.Broker != "" {
		pub, err := render.NewMQTTPublisher(cfg.MQTT.Broker)
		if err != nil {
			return nil, closeFn, err
		}
		log.Info().Str("broker", cfg.MQTT.Broker).Msg("publishing frames")
		sinks = append(sinks, pub)
		closeFn = func() { pub.Close() }
	}

	if len(sinks) == 1 {
		return sinks[0], closeFn, nil
	}
	return sinks, closeFn, nil
}

// runSession runs s until it ends or SIGINT/SIGTERM arrives.
func runSession(s *session.Session) error {
	eg, ctx := errgroup.WithContext(context.Background())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	eg.Go(func() error {
		select {
		case sig := <-sigChan:
			log.Debug().Str("signal", sig.String()).Msg("stopping")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	eg.Go(func() error {
		defer cancel()
		return s.Run(ctx)
	})

	err := eg.Wait()

	stats := s.Stats()
	evt := log.Info()
	if stats.Malformed > 0 || stats.TrailingEscape {
		evt = log.Warn()
	}
	evt.Str("termination", stats.Termination.String()).
		Int64("bytes", stats.Bytes).
		Int64("frames", stats.Frames).
		Int64("malformed", stats.Malformed).
		Bool("trailing_escape", stats.TrailingEscape).
		Msg("done")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	port, err := serial.OpenTransport(cfg.Transport, cfg.Device, cfg.Baud, cfg.ReadTimeout)
	if err != nil {
		return err
	}
	defer port.Close()

	log.Info().
		Str("port", port.PortName()).
		Int("baud", cfg.Baud).
		Str("transport", string(cfg.Transport)).
		Msg("listening")

	var src io.Reader = port
	if cfg.Record != "" {
		rec, err := capture.NewRecorder(port, cfg.Record)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close capture")
			}
			log.Info().Str("file", cfg.Record).Int64("bytes", rec.Written()).Msg("capture saved")
		}()
		src = rec
	}

	sink, closeSink, err := buildSink(cfg, os.Stdout)
	defer closeSink()
	if err != nil {
		return err
	}

	s := session.New(src, sink,
		session.WithLogger(log.Logger),
		session.WithIdleTimeout(cfg.IdleTimeout),
		session.WithBufferSize(cfg.BufferSize),
	)
	return runSession(s)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	f, size, err := capture.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	var src io.Reader = f
	var bar *progressbar.ProgressBar
	if progressFlag {
		bar = progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Replaying"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		src = io.TeeReader(src, bar)
	}
	if chunkFlag > 0 {
		src = &capture.ChunkReader{R: src, Size: chunkFlag}
	}

	sink, closeSink, err := buildSink(cfg, os.Stdout)
	defer closeSink()
	if err != nil {
		return err
	}

	s := session.New(src, sink,
		session.WithLogger(log.Logger),
		session.WithBufferSize(cfg.BufferSize),
	)
	err = runSession(s)
	if bar != nil {
		bar.Finish()
	}
	return err
}

func runEncode(cmd *cobra.Command, args []string) error {
	var out io.Writer = os.Stdout
	if outputFlag != "" {
		f, err := os.Create(outputFlag)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(os.Stdin)
	var raw []byte
	line := 0
	for scanner.Scan() {
		line++
		data, err := render.ParseHexLine(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		raw = parmrk.EncodeFrame(raw[:0], data)
		if _, err := w.Write(raw); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return w.Flush()
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	window, err := time.ParseDuration(windowFlag)
	if err != nil {
		return fmt.Errorf("invalid --window: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Scanning for SeaTalk traffic...")
	results, err := detect.ScanPorts(ctx, detect.Options{
		Transport: cfg.Transport,
		BaudRate:  cfg.Baud,
		Window:    window,
		Logger:    log.Logger,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No SeaTalk traffic found")
		return nil
	}

	fmt.Printf("Found %d port(s):\n\n", len(results))
	for _, r := range results {
		printScanResult(&r)
		fmt.Println()
	}
	return nil
}

func printScanResult(r *detect.Result) {
	fmt.Printf("  Port:      %s\n", r.Port)
	fmt.Printf("  Frames:    %d (%d bytes)\n", r.Frames, r.Bytes)
	if r.Malformed > 0 {
		fmt.Printf("  Malformed: %d\n", r.Malformed)
	}
	for _, cmd := range r.Commands {
		fmt.Printf("  Command:   0x%02X %s\n", cmd, seatalk.CommandName(cmd))
	}
}
