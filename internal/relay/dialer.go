package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/mcpclient"
)

// SSEDialer opens event-stream connections to the tool gateway.
type SSEDialer struct {
	BaseURL string
	Logger  *zap.Logger
}

// Dial connects and completes the handshake.
func (d SSEDialer) Dial(ctx context.Context) (GatewayConn, error) {
	c := mcpclient.NewSSE("algochat-relay", d.BaseURL, mcpclient.SSEOptions{Logger: d.Logger})
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
