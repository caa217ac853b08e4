package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matheus3301/buddytalk/internal/api"
	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/tui/client"
	"github.com/spf13/cobra"
)

var (
	failedChannel string
	failedUser    string
)

func init() {
	rootCmd.AddCommand(statusCmd, channelCmd, userCmd, moreCmd, sendCmd, failedCmd, watchCmd)
	failedCmd.Flags().StringVar(&failedChannel, "channel", "", "only records for this channel")
	failedCmd.Flags().StringVar(&failedUser, "user", "", "only records from this user")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the selected channel, user and visible messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			st, err := c.GetState(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(os.Stdout, st)
			}
			writeState(os.Stdout, st)
			return nil
		})
	},
}

var channelCmd = &cobra.Command{
	Use:   "channel <id>",
	Short: "Select the active channel and load its latest messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, func(ctx context.Context, c *client.Client) (*api.Result, error) {
			return c.SelectChannel(ctx, args[0])
		})
	},
}

var userCmd = &cobra.Command{
	Use:   "user <id>",
	Short: "Select the sender identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, func(ctx context.Context, c *client.Client) (*api.Result, error) {
			return c.SelectUser(ctx, args[0])
		})
	},
}

var moreCmd = &cobra.Command{
	Use:       "more older|newer",
	Short:     "Load a page of older or newer messages",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"older", "newer"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := chat.ParseDirection(args[0]); err != nil {
			return err
		}
		return runCommand(cmd, func(ctx context.Context, c *client.Client) (*api.Result, error) {
			return c.FetchMore(ctx, args[0])
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <text...>",
	Short: "Post a message to the active channel",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return runCommand(cmd, func(ctx context.Context, c *client.Client) (*api.Result, error) {
			return c.SendText(ctx, text)
		})
	},
}

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List failed-send records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			records, err := c.ListFailed(ctx, api.ListFailedRequest{ChannelID: failedChannel, UserID: failedUser})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(os.Stdout, api.FailedList{Records: records})
			}
			writeMessages(os.Stdout, records)
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [prefix]",
	Short: "Stream daemon events, optionally filtered by kind prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return watch(cmd, prefix)
	},
}

func watch(cmd *cobra.Command, prefix string) error {
	// Streams until interrupted, so no request timeout.
	c, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	stream, err := c.WatchEvents(cmd.Context(), prefix)
	if err != nil {
		return err
	}
	for {
		env, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		}
		if jsonOutput {
			if err := writeJSONLine(os.Stdout, env); err != nil {
				return err
			}
			continue
		}
		writeEvent(os.Stdout, env)
	}
}

func runCommand(cmd *cobra.Command, call func(ctx context.Context, c *client.Client) (*api.Result, error)) error {
	return withClient(cmd, func(ctx context.Context, c *client.Client) error {
		res, err := call(ctx, c)
		if err != nil {
			return err
		}
		if jsonOutput {
			if err := writeJSON(os.Stdout, res); err != nil {
				return err
			}
		} else {
			writeResult(os.Stdout, res)
		}
		if !res.Accepted {
			return fmt.Errorf("rejected: %s", res.Reason)
		}
		return nil
	})
}
