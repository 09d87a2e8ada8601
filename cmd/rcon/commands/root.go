package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cavarest/rcon/packet"
	"github.com/cavarest/rcon/session"
)

var (
	// addr is the host:port of the RCON server.
	addr string

	// password is the RCON password. Falls back to the RCON_PASSWORD
	// environment variable when unset, so it never needs to appear in
	// shell history.
	password string

	// dialTimeout bounds the TCP connect step.
	dialTimeout time.Duration

	// charsetName selects the payload charset: "utf8" or "iso8859-1".
	charsetName string

	// strategyName selects the fragment-resolution strategy: "active-probe"
	// (default), "timeout", or "packet-size".
	strategyName string

	// verbose enables debug-level event logging to stderr.
	verbose bool

	// logger is the shared event sink threaded into every dialed client.
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rcon",
	Short: "Command-line client for the Source RCON protocol",
	Long:  "rcon connects to a Minecraft-family server's RCON port and runs remote console commands.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if password == "" {
			password = os.Getenv("RCON_PASSWORD")
		}
		if addr == "" {
			return fmt.Errorf("--addr is required")
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "RCON server address, host:port (required)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "RCON password (default: $RCON_PASSWORD)")
	rootCmd.PersistentFlags().DurationVar(&dialTimeout, "dial-timeout", 5*time.Second, "TCP connect timeout")
	rootCmd.PersistentFlags().StringVar(&charsetName, "charset", "utf8", "payload charset: utf8, iso8859-1")
	rootCmd.PersistentFlags().StringVar(&strategyName, "strategy", "active-probe", "fragment strategy: active-probe, timeout, packet-size")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log protocol-level events to stderr")

	rootCmd.AddCommand(execCmd())
	rootCmd.AddCommand(shellCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// resolveCharset maps the --charset flag to a packet.Charset.
func resolveCharset(name string) (packet.Charset, error) {
	switch name {
	case "utf8", "":
		return packet.UTF8, nil
	case "iso8859-1":
		return packet.ISO88591, nil
	default:
		return nil, fmt.Errorf("unknown charset %q, expected utf8 or iso8859-1", name)
	}
}

// resolveStrategy maps the --strategy flag to a session.Strategy.
func resolveStrategy(name string) (session.Strategy, error) {
	switch name {
	case "active-probe", "":
		return session.NewActiveProbeStrategy(), nil
	case "timeout":
		return session.NewTimeoutStrategy(), nil
	case "packet-size":
		return session.NewPacketSizeStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q, expected active-probe, timeout, or packet-size", name)
	}
}
