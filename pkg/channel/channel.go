package channel

import (
	"context"

	"aromabot/pkg/bus"
	"aromabot/pkg/router"
)

// Handler processes one inbound event and returns the reply to deliver.
type Handler func(context.Context, router.InboundEvent) (bus.OutboundMessage, error)

// Adapter bridges one external transport (for example Telegram) into the bot.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
