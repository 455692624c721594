package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/client"
	"chat-relay/domain/group"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration and skips when no relay is given.
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, skipping end-to-end suite")
	}
}

// WithClient opens a fresh connection for one contextual test step.
func (s *BaseRelaySuite) WithClient(name string, fn func(ctx context.Context, c *client.Client)) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, s.Config.RelayAddr)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayAddr)
	defer func() { _ = c.Close() }()

	fn(ctx, c)
}

// Await waits for one of the events and logs the frame when E2E_DEBUG_JSON is set.
func (s *BaseRelaySuite) Await(ctx context.Context, c *client.Client, events ...string) group.Frame {
	start := time.Now()
	frame, err := c.Await(ctx, events...)
	s.Require().NoError(err)
	s.T().Logf("WS %s in %v", frame.Event, time.Since(start))
	if s.Config.DebugJSON {
		raw, _ := json.MarshalIndent(frame, "", "  ")
		s.T().Log(string(raw))
	}
	return frame
}
