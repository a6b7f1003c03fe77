package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bigbag/seatalk-reader/internal/config"
	"github.com/bigbag/seatalk-reader/internal/detect"
	"github.com/bigbag/seatalk-reader/internal/seatalk"
	"github.com/bigbag/seatalk-reader/internal/serial"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFlag      string
	logLevelFlag    string
	portFlag        string
	baudFlag        int
	transportFlag   string
	formatFlag      string
	annotateFlag    bool
	idleTimeoutFlag string
	recordFlag      string
	mqttFlag        string
	chunkFlag       int
	progressFlag    bool
	outputFlag      string
	windowFlag      string
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	rootCmd := &cobra.Command{
		Use:   "seatalk-reader",
		Short: "Print SeaTalk bus commands read through a 9-bit serial tap",
		Long: `SeaTalk Reader decodes the 9-bit SeaTalk instrument bus from a UART
running with stick parity and parity marking, and prints every bus command
as a line of hex bytes.

The UART inserts 0xFF 0x00 in front of each command byte and doubles every
literal 0xFF; the reader strips those markers and starts a new line at each
command.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (trace, debug, info, warn, error)")

	// Read command
	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Read the bus and print commands",
		Long: `Open the serial device and print every decoded command until
interrupted.

By default the port is programmed for parity marking (Linux only).
Use --transport plain for bridges that already deliver the marked stream.`,
		Args: cobra.NoArgs,
		RunE: runRead,
	}
	readCmd.Flags().StringVarP(&portFlag, "port", "p", seatalk.DefaultDevice, "Serial port")
	readCmd.Flags().IntVarP(&baudFlag, "baud", "b", seatalk.DefaultBaudRate, "Baud rate")
	readCmd.Flags().StringVarP(&transportFlag, "transport", "t", string(serial.TransportMarked), "Transport (parmrk, plain)")
	readCmd.Flags().StringVar(&idleTimeoutFlag, "idle-timeout", "", "Stop after the bus is quiet this long (e.g. 30s)")
	readCmd.Flags().StringVar(&recordFlag, "record", "", "Also write the raw stream to this capture file")
	addOutputFlags(readCmd)

	// Replay command
	replayCmd := &cobra.Command{
		Use:   "replay <capture>",
		Short: "Decode a raw capture file",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
	replayCmd.Flags().IntVar(&chunkFlag, "chunk", 0, "Read the capture this many bytes at a time")
	replayCmd.Flags().BoolVar(&progressFlag, "progress", true, "Show a progress bar on stderr")
	addOutputFlags(replayCmd)

	// Encode command
	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Turn hex command lines from stdin into a raw marked stream",
		Args:  cobra.NoArgs,
		RunE:  runEncode,
	}
	encodeCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (stdout if not specified)")

	// Scan command
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Find serial ports carrying SeaTalk traffic",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}
	scanCmd.Flags().IntVarP(&baudFlag, "baud", "b", seatalk.DefaultBaudRate, "Baud rate")
	scanCmd.Flags().StringVarP(&transportFlag, "transport", "t", string(serial.TransportMarked), "Transport (parmrk, plain)")
	scanCmd.Flags().StringVar(&windowFlag, "window", detect.DefaultWindow.String(), "How long to listen on each port")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("seatalk-reader %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	rootCmd.AddCommand(readCmd, replayCmd, encodeCmd, scanCmd, versionCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&formatFlag, "format", "f", config.FormatHex, "Output format (hex, json)")
	cmd.Flags().BoolVarP(&annotateFlag, "annotate", "a", false, "Append readings for known datagrams")
	cmd.Flags().StringVar(&mqttFlag, "mqtt", "", "Also publish frames to this MQTT broker URL")
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	return nil
}
