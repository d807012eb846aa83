package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"rental-booking-bot/internal/domain/ports/adapter"
)

var _ adapter.ChatTransport = (*Client)(nil)

// Client sends outbound messages through a wuzapi-style WhatsApp HTTP
// gateway. The gateway addresses chats by their channel id (the JID
// without the server suffix).
type Client struct {
	http *resty.Client
	log  *zerolog.Logger
}

func NewClient(gatewayURL, token string, logger *zerolog.Logger) *Client {
	cLog := logger.With().Str("component", "WhatsAppGateway").Logger()
	httpClient := resty.New().
		SetBaseURL(gatewayURL).
		SetHeader("Token", token).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: httpClient, log: &cLog}
}

type sendTextRequest struct {
	Phone string `json:"Phone"`
	Body  string `json:"Body"`
}

type sendTextResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ID string `json:"Id"`
	} `json:"data"`
}

// Send delivers text to the given channel. Gateway-side failures are
// returned as errors so callers can decide whether the conversation can
// proceed without the message.
func (c *Client) Send(ctx context.Context, channelID, text string) error {
	var out sendTextResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendTextRequest{Phone: channelID, Body: text}).
		SetResult(&out).
		Post("/chat/send/text")
	if err != nil {
		return fmt.Errorf("gateway send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("gateway send: status %s: %s", resp.Status(), resp.String())
	}
	if !out.Success {
		return fmt.Errorf("gateway send: rejected for %s", channelID)
	}
	c.log.Debug().Str("channel_id", channelID).Str("message_id", out.Data.ID).Msg("message sent")
	return nil
}
