package tui

import (
	"fmt"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// Commander is what prompt commands act on.
type Commander interface {
	SelectChannel(id string)
	SelectUser(id string)
	FetchMore(direction string)
	ShowHelp()
	Quit()
}

// Dispatch runs cmd against c.
func Dispatch(c Commander, cmd Command) error {
	switch cmd.Name {
	case "channel", "ch":
		if cmd.Args == "" {
			return fmt.Errorf("usage: :channel <id>")
		}
		c.SelectChannel(cmd.Args)
	case "user", "u":
		if cmd.Args == "" {
			return fmt.Errorf("usage: :user <id>")
		}
		c.SelectUser(cmd.Args)
	case "older", "newer":
		c.FetchMore(cmd.Name)
	case "help", "h":
		c.ShowHelp()
	case "quit", "q":
		c.Quit()
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
	return nil
}
