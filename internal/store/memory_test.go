package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryStore_SetGet tests basic set and get operations
func TestMemoryStore_SetGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	key := "test_key"
	value := []byte("test_value")

	// Set value
	err := store.Set(key, value, 0)
	require.NoError(t, err)

	// Get value
	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)
}

// TestMemoryStore_GetNonExistent tests getting a non-existent key
func TestMemoryStore_GetNonExistent(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.Get("non_existent")
	assert.Equal(t, ErrNotFound, err)
}

// TestMemoryStore_SetWithTTL tests set with TTL
func TestMemoryStore_SetWithTTL(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	key := "ttl_key"
	value := []byte("ttl_value")
	ttl := 100 * time.Millisecond

	err := store.Set(key, value, ttl)
	require.NoError(t, err)

	// Get immediately
	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	// Wait for expiration using Eventually to avoid flakiness
	require.Eventually(t, func() bool {
		_, err = store.Get(key)
		return err == ErrNotFound
	}, time.Second, 10*time.Millisecond, "Key should expire after TTL")
}

// TestMemoryStore_Delete tests delete operation
func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	key := "delete_key"
	err := store.Set(key, []byte("delete_value"), 0)
	require.NoError(t, err)

	err = store.Delete(key)
	require.NoError(t, err)

	_, err = store.Get(key)
	assert.Equal(t, ErrNotFound, err)
}

// TestMemoryStore_Exists tests exists operation
func TestMemoryStore_Exists(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	key := "exists_key"

	exists, err := store.Exists(key)
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.Set(key, []byte("exists_value"), 0)
	require.NoError(t, err)

	exists, err = store.Exists(key)
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestMemoryStore_SetNX tests set if not exists operation
func TestMemoryStore_SetNX(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	key := "setnx_key"
	value1 := []byte("value1")
	value2 := []byte("value2")

	// First SetNX should succeed
	ok, err := store.SetNX(key, value1, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second SetNX should fail
	ok, err = store.SetNX(key, value2, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	// Verify original value
	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value1, retrieved)
}

// TestMemoryStore_SetNXWithExpiredKey tests SetNX with expired key
func TestMemoryStore_SetNXWithExpiredKey(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	key := "setnx_expired_key"

	ok, err := store.SetNX(key, []byte("value1"), 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		_, err = store.Get(key)
		return err == ErrNotFound
	}, time.Second, 10*time.Millisecond, "Key should expire after TTL")

	// SetNX should succeed after expiration
	ok, err = store.SetNX(key, []byte("value2"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("value2"), retrieved)
}

// TestMemoryStore_PublishSubscribe tests pub/sub delivery
func TestMemoryStore_PublishSubscribe(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	sub, err := store.Subscribe("settings_changed")
	require.NoError(t, err)
	defer sub.Close()

	err = store.Publish("settings_changed", []byte("reload"))
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "settings_changed", msg.Channel)
		assert.Equal(t, []byte("reload"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for published message")
	}
}

// TestMemoryStore_SubscribeIsolation tests that channels do not leak messages
func TestMemoryStore_SubscribeIsolation(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	subA, err := store.Subscribe("channel_a")
	require.NoError(t, err)
	defer subA.Close()

	subB, err := store.Subscribe("channel_b")
	require.NoError(t, err)
	defer subB.Close()

	err = store.Publish("channel_a", []byte("only_a"))
	require.NoError(t, err)

	select {
	case msg := <-subA.Channel():
		assert.Equal(t, []byte("only_a"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("Subscriber A should receive its message")
	}

	select {
	case msg := <-subB.Channel():
		t.Fatalf("Subscriber B should not receive message: %s", msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestMemoryStore_Clear tests clearing all keys
func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	require.NoError(t, store.Set("key1", []byte("v1"), 0))
	require.NoError(t, store.Set("key2", []byte("v2"), 0))

	err := store.Clear()
	require.NoError(t, err)

	_, err = store.Get("key1")
	assert.Equal(t, ErrNotFound, err)
	_, err = store.Get("key2")
	assert.Equal(t, ErrNotFound, err)
}
