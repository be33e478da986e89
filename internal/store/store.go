// Package store provides a pluggable key-value store with pub/sub, used for
// cross-instance settings invalidation and scheduler signaling.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("store: key not found")

// Message represents a message received from a subscription.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription represents an active subscription to a channel.
type Subscription interface {
	// Channel returns the channel on which messages are delivered.
	Channel() <-chan *Message
	// Close terminates the subscription.
	Close() error
}

// Store defines the interface for a key-value store with pub/sub support.
type Store interface {
	// Set stores a key-value pair, with an optional TTL (0 for no expiry).
	Set(key string, value []byte, ttl time.Duration) error
	// Get retrieves a value by its key. Returns ErrNotFound if missing.
	Get(key string) ([]byte, error)
	// Delete removes a value by its key.
	Delete(key string) error
	// Exists checks if a key exists.
	Exists(key string) (bool, error)
	// SetNX sets a key-value pair if the key does not already exist.
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	// Publish sends a message to all subscribers of a channel.
	Publish(channel string, message []byte) error
	// Subscribe listens for messages on a given channel.
	Subscribe(channel string) (Subscription, error)
	// Clear removes all data.
	Clear() error
	// Close releases any resources held by the store.
	Close() error
}
