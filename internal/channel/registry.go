package channel

import (
	"fmt"
	"sync"

	"uppypro/internal/models"
)

// Registry channel adapters keyed by channel type
type Registry struct {
	mu       sync.RWMutex
	channels map[models.ChannelType]Channel
}

// NewRegistry creates a registry with the given adapters
func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{
		channels: make(map[models.ChannelType]Channel),
	}
	for _, ch := range channels {
		r.Register(ch)
	}
	return r
}

// Register adds or replaces an adapter
func (r *Registry) Register(channel Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.channels[channel.Type()] = channel
}

// Get returns the adapter for channelType
func (r *Registry) Get(channelType models.ChannelType) (Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channel, exists := r.channels[channelType]
	if !exists {
		return nil, fmt.Errorf("channel type %q is not registered", channelType)
	}

	return channel, nil
}

// Has reports whether channelType is registered
func (r *Registry) Has(channelType models.ChannelType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.channels[channelType]
	return exists
}

// Types registered channel types
func (r *Registry) Types() []models.ChannelType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.ChannelType, 0, len(r.channels))
	for t := range r.channels {
		types = append(types, t)
	}
	return types
}
