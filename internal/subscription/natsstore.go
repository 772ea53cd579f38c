package subscription

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

const bucketName = "mavrouter_subscriptions"

// NATSStore persists subscriptions in a JetStream key/value bucket so they
// outlive router restarts — the out-of-process cache the subscription
// registry requires. The bucket, not the router, owns their lifetime.
type NATSStore struct {
	nc *nats.Conn
	kv nats.KeyValue
}

// NewNATSStore connects to url and opens (creating if necessary) the
// subscription bucket.
func NewNATSStore(url string) (*NATSStore, error) {
	nc, err := nats.Connect(url, nats.Name("mavrouterd"))
	if err != nil {
		return nil, fmt.Errorf("subscription: nats connect: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscription: jetstream context: %w", err)
	}
	kv, err := js.KeyValue(bucketName)
	if err != nil {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: bucketName})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("subscription: create kv bucket: %w", err)
		}
	}
	return &NATSStore{nc: nc, kv: kv}, nil
}

func (s *NATSStore) Save(id string, q Query) error {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("subscription: marshal query: %w", err)
	}
	_, err = s.kv.Put(id, b)
	return err
}

func (s *NATSStore) Delete(id string) error {
	err := s.kv.Delete(id)
	if err == nats.ErrKeyNotFound {
		return nil
	}
	return err
}

func (s *NATSStore) List() (map[string]Query, error) {
	keys, err := s.kv.Keys()
	if err == nats.ErrNoKeysFound {
		return map[string]Query{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("subscription: list keys: %w", err)
	}
	out := make(map[string]Query, len(keys))
	for _, k := range keys {
		entry, err := s.kv.Get(k)
		if err != nil {
			continue
		}
		var q Query
		if err := json.Unmarshal(entry.Value(), &q); err != nil {
			continue
		}
		out[k] = q
	}
	return out, nil
}

func (s *NATSStore) Close() error {
	s.nc.Close()
	return nil
}
