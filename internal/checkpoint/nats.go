package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fivetwenty-io/armclient/internal/constants"
)

// NATSConfig configures a JetStream key-value backed store.
type NATSConfig struct {
	// URL of the NATS server, for example "nats://127.0.0.1:4222".
	URL string

	// Bucket is the key-value bucket name. Defaults to "armc_checkpoints".
	Bucket string

	// TTL expires checkpoints of listings that were never finished.
	TTL time.Duration

	// ConnectTimeout bounds the initial connection.
	ConnectTimeout time.Duration
}

// NATSStore keeps checkpoints in a JetStream key-value bucket so that a
// listing can be resumed from another host.
type NATSStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSStore connects to NATS and creates the bucket if needed.
func NewNATSStore(ctx context.Context, cfg *NATSConfig) (*NATSStore, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, constants.ErrNATSURLRequired
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = constants.DefaultCheckpointBucket
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = constants.DefaultCheckpointTTL
	}

	opts := []nats.Option{nats.Name(constants.ModuleName)}
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnectTimeout))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "armc continuation checkpoints",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating key-value bucket %s: %w", bucket, err)
	}

	return &NATSStore{conn: conn, kv: kv}, nil
}

// NewNATSStoreFromKeyValue wraps an existing bucket. The caller keeps
// ownership of its connection.
func NewNATSStoreFromKeyValue(kv jetstream.KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

// Save stores cp under key.
func (s *NATSStore) Save(ctx context.Context, key string, cp *Checkpoint) error {
	err := ValidateKey(key)
	if err != nil {
		return err
	}

	data, err := encode(cp)
	if err != nil {
		return err
	}

	_, err = s.kv.Put(ctx, key, data)
	if err != nil {
		return fmt.Errorf("saving checkpoint %s: %w", key, err)
	}

	return nil
}

// Load returns the checkpoint stored under key.
func (s *NATSStore) Load(ctx context.Context, key string) (*Checkpoint, error) {
	err := ValidateKey(key)
	if err != nil {
		return nil, err
	}

	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", constants.ErrCheckpointNotFound, key)
		}

		return nil, fmt.Errorf("loading checkpoint %s: %w", key, err)
	}

	return decode(entry.Value())
}

// Delete removes key. Deleting a missing key is not an error.
func (s *NATSStore) Delete(ctx context.Context, key string) error {
	err := ValidateKey(key)
	if err != nil {
		return err
	}

	err = s.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting checkpoint %s: %w", key, err)
	}

	return nil
}

// Close drains the connection opened by NewNATSStore.
func (s *NATSStore) Close() error {
	if s.conn == nil {
		return nil
	}

	err := s.conn.Drain()
	if err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}
