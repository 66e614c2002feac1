package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionEvent(t *testing.T) {
	legal := []struct{ from, to EventStatus }{
		{EventScheduled, EventLive},
		{EventScheduled, EventCancelled},
		{EventScheduled, EventSuspended},
		{EventLive, EventCompleted},
		{EventLive, EventSuspended},
		{EventSuspended, EventCancelled},
		{EventSuspended, EventLive},
	}
	for _, c := range legal {
		assert.True(t, CanTransitionEvent(c.from, c.to), "%s -> %s should be legal", c.from, c.to)
	}

	illegal := []struct{ from, to EventStatus }{
		{EventScheduled, EventCompleted},
		{EventCompleted, EventLive},
		{EventCancelled, EventLive},
		{EventLive, EventScheduled},
		{EventLive, EventCancelled},
	}
	for _, c := range illegal {
		assert.False(t, CanTransitionEvent(c.from, c.to), "%s -> %s should be illegal", c.from, c.to)
	}
}

func TestCanTransitionMarket(t *testing.T) {
	legal := []struct{ from, to MarketStatus }{
		{MarketOpen, MarketActive},
		{MarketOpen, MarketClosed},
		{MarketOpen, MarketSuspended},
		{MarketActive, MarketClosed},
		{MarketActive, MarketSuspended},
		{MarketSuspended, MarketClosed},
		{MarketSuspended, MarketActive},
		{MarketClosed, MarketSettled},
	}
	for _, c := range legal {
		assert.True(t, CanTransitionMarket(c.from, c.to), "%s -> %s should be legal", c.from, c.to)
	}

	illegal := []struct{ from, to MarketStatus }{
		{MarketOpen, MarketSettled},
		{MarketSettled, MarketOpen},
		{MarketClosed, MarketActive},
		{MarketClosed, MarketOpen},
	}
	for _, c := range illegal {
		assert.False(t, CanTransitionMarket(c.from, c.to), "%s -> %s should be illegal", c.from, c.to)
	}
}
