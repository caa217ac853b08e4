package main

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/buddytalk/internal/session"
	"github.com/matheus3301/buddytalk/internal/tui/client"
	"github.com/spf13/cobra"
)

var (
	sessionFlag string
	jsonOutput  bool
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "buddyctl",
	Short:         "Control a running buddyd session",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "session name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
}

func dial() (*client.Client, error) {
	sessionName := session.Resolve(sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		return nil, err
	}

	c, err := client.New(session.SocketPath(sessionName))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon for session %q: %w", sessionName, err)
	}
	return c, nil
}

// withClient connects to the session's daemon and runs fn with a bounded context.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	return fn(ctx, c)
}
