package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"chat-relay/client"
	"chat-relay/domain/group"
	"chat-relay/observability"

	"github.com/Netflix/go-env"
	"github.com/spf13/cobra"
)

// Config holds the flag defaults, overridable from the environment.
type Config struct {
	URL     string        `env:"RELAY_URL,default=ws://localhost:8080/chat"`
	Timeout time.Duration `env:"RELAY_TIMEOUT,default=5s"`
	Colours bool          `env:"RELAY_COLOURS,default=true"`
}

type options struct {
	url     string
	timeout time.Duration
	printer *printer
}

func newRootCmd() *cobra.Command {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		config = Config{URL: "ws://localhost:8080/chat", Timeout: 5 * time.Second, Colours: true}
	}
	opts := &options{}
	colours := config.Colours

	root := &cobra.Command{
		Use:           "relayctl",
		Short:         "Talk to a chat relay from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.printer = newPrinter(cmd.OutOrStdout(), colours)
		},
	}
	root.PersistentFlags().StringVar(&opts.url, "url", config.URL, "websocket endpoint of the relay")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", config.Timeout, "time to wait for each reply")
	root.PersistentFlags().BoolVar(&colours, "colours", config.Colours, "colourise output")

	root.AddCommand(
		newCreateCmd(opts),
		newJoinCmd(opts),
		newSendCmd(opts),
		newHistoryCmd(opts),
		newPingCmd(opts),
		newListenCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

// session dials the relay and hands the connected client to fn.
func (o *options) session(ctx context.Context, fn func(ctx context.Context, c *client.Client) error) error {
	dialCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	c, err := client.Dial(dialCtx, o.url)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	return fn(ctx, c)
}

// request sends one frame and waits for one of the expected replies.
func (o *options) request(ctx context.Context, c *client.Client, expect []string, event string, args ...any) (group.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := c.Invoke(ctx, event, args...); err != nil {
		return group.Frame{}, err
	}
	return c.Await(ctx, expect...)
}

func newCreateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create <group> <passcode>",
		Short: "Create a passcode protected group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.session(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				frame, err := o.request(ctx, c, []string{group.EventNotification, group.EventError},
					"CreateGroup", args[0], args[1])
				if err != nil {
					return err
				}
				return o.printer.Reply(frame)
			})
		},
	}
}

func newJoinCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "join <group> <passcode>",
		Short: "Check a passcode by joining a group (membership ends with the command)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.session(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				frame, err := o.request(ctx, c, []string{group.EventNotification, group.EventError},
					"AddToGroup", args[0], args[1])
				if err != nil {
					return err
				}
				return o.printer.Reply(frame)
			})
		},
	}
}

func newSendCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <group> <message>",
		Short: "Send a message to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.session(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				ctx, cancel := context.WithTimeout(ctx, o.timeout)
				defer cancel()
				if err := c.Invoke(ctx, "SendMessageToGroup", args[0], args[1]); err != nil {
					return err
				}
				// Requests run in order per connection: a rejection arrives before the pong.
				frame, err := o.request(ctx, c, []string{group.EventError, group.EventPong}, "Ping")
				if err != nil {
					return err
				}
				if frame.Event == group.EventPong {
					o.printer.Success(fmt.Sprintf("Message sent to %s.", args[0]))
					return nil
				}
				return o.printer.Reply(frame)
			})
		},
	}
}

func newHistoryCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history <group>",
		Short: "Show the recent messages of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.session(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				frame, err := o.request(ctx, c, []string{group.EventGroupMessages, group.EventError},
					"GetGroupMessages", args[0])
				if err != nil {
					return err
				}
				if frame.Event == group.EventError {
					return o.printer.Reply(frame)
				}
				entries, err := client.History(frame)
				if err != nil {
					return err
				}
				o.printer.History(entries)
				return nil
			})
		},
	}
}

func newPingCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Measure the round trip to the relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.session(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				start := time.Now()
				frame, err := o.request(ctx, c, []string{group.EventPong}, "Ping")
				if err != nil {
					return err
				}
				o.printer.Success(fmt.Sprintf("Pong from %s in %v (server time %s)",
					c.ID(), time.Since(start).Round(time.Microsecond), client.Text(frame)))
				return nil
			})
		},
	}
}

func newListenCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "listen <group> <passcode>",
		Short: "Join a group and print its traffic until interrupted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.session(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				frame, err := o.request(ctx, c, []string{group.EventNotification, group.EventError},
					"AddToGroup", args[0], args[1])
				if err != nil {
					return err
				}
				if err := o.printer.Reply(frame); err != nil {
					return err
				}
				for {
					frame, err := c.Next(ctx)
					if err != nil {
						if ctx.Err() != nil {
							return nil
						}
						return err
					}
					o.printer.Frame(frame)
				}
			})
		},
	}
}

func newStatsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the relay counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statsURL, err := StatsURL(o.url)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			request, err := http.NewRequestWithContext(ctx, http.MethodGet, statsURL, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(request)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("stats: unexpected status %s", resp.Status)
			}
			var snapshot observability.Snapshot
			if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
				return err
			}
			o.printer.Stats(snapshot)
			return nil
		},
	}
}

// StatsURL maps the websocket endpoint to the /stats endpoint of the same server.
func StatsURL(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/stats"
	u.RawQuery = ""
	return u.String(), nil
}
