package channel

import (
	"context"
	"fmt"
	"sync"

	"uppypro/internal/models"
)

// ===========================================================================
// FakeChannel
// In-memory channel for tests and local development without Meta credentials.
// Records sent messages instead of calling the Graph API.
// ===========================================================================

// FakeChannel implements Channel without network access
type FakeChannel struct {
	channelType models.ChannelType

	mu      sync.Mutex
	sent    []OutboundMessage
	counter int

	// SendErr returned by Send when set
	SendErr error

	// Batch returned by Normalize when set
	Batch *Batch
}

// NewFakeChannel creates a fake for channelType
func NewFakeChannel(channelType models.ChannelType) *FakeChannel {
	return &FakeChannel{channelType: channelType}
}

// Type returns the configured channel type
func (f *FakeChannel) Type() models.ChannelType {
	return f.channelType
}

// Normalize returns the configured Batch
func (f *FakeChannel) Normalize(ctx context.Context, body []byte) (*Batch, error) {
	if f.Batch == nil {
		return &Batch{}, nil
	}
	return f.Batch, nil
}

// Send records msg and returns a sequential fake message id
func (f *FakeChannel) Send(ctx context.Context, conn *models.ChannelConnection, msg *OutboundMessage) (*SendResult, error) {
	if !conn.IsConnected() {
		return nil, ErrNotConnected
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendErr != nil {
		return nil, f.SendErr
	}

	f.counter++
	f.sent = append(f.sent, *msg)
	return &SendResult{ChannelMessageID: fmt.Sprintf("fake.%s.%d", f.channelType, f.counter)}, nil
}

// Verify uses the real signature scheme
func (f *FakeChannel) Verify(signature string, body []byte, secret string) bool {
	return Verify(signature, body, secret)
}

// Sent copies of the recorded messages
func (f *FakeChannel) Sent() []OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]OutboundMessage, len(f.sent))
	copy(out, f.sent)
	return out
}
