package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_Accessors(t *testing.T) {
	ev := Event{
		ContractAddress: "0xABCDEF",
		Values: map[string]any{
			"spaceTokenId": "42",
			"owner":        "0xDEADBEEF",
			"status":       uint64(3),
			"empty":        nil,
		},
	}

	assert.Equal(t, "42", ev.String("tokenId", "spaceTokenId"))
	assert.Equal(t, uint64(42), ev.Uint("spaceTokenId"))
	assert.Equal(t, uint64(3), ev.Uint("status"))
	assert.Equal(t, "0xdeadbeef", ev.Address("owner"))
	assert.Equal(t, "0xabcdef", ev.Contract())
	assert.Equal(t, "", ev.String("empty"))
	assert.Equal(t, uint64(0), ev.Uint("missing"))
}

func TestEvent_Before(t *testing.T) {
	a := Event{BlockNumber: 10, LogIndex: 5}
	b := Event{BlockNumber: 10, LogIndex: 6}
	c := Event{BlockNumber: 11, LogIndex: 0}

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.False(t, c.Before(a))
	assert.False(t, a.Before(a))
}

func TestIsZeroAddress(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected bool
	}{
		{name: "empty", address: "", expected: true},
		{name: "zero address", address: ZeroAddress, expected: true},
		{name: "short zero", address: "0x0", expected: true},
		{name: "uppercase real address", address: "0x742D35CC6634C0532925A3B844BC9E7595F0BEB0", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsZeroAddress(tt.address))
		})
	}
}
