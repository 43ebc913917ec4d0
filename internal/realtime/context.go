package realtime

import "context"

type contextKey string

const channelKey contextKey = "channel"

func WithChannel(ctx context.Context, channel *Channel) context.Context {
	return context.WithValue(ctx, channelKey, channel)
}

func ChannelFromContext(ctx context.Context) (*Channel, bool) {
	channel, ok := ctx.Value(channelKey).(*Channel)

	return channel, ok
}
