// Package gochannel provides the in-process watermill channel used in
// development and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// CreateChannel builds an in-memory pub/sub pair sharing one channel.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel) {
	channel := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 256,
			Persistent:          false,
		},
		logger,
	)

	return channel, channel
}

// CreateTestChannel builds a persistent in-memory channel so subscribers
// added after publish still receive messages.
func CreateTestChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 16,
			Persistent:          true,
		},
		logger,
	)
}
