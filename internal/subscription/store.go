package subscription

// Store persists (id, Query) pairs in a cache whose lifetime is independent
// of the router process, so subscriptions survive a router restart. Two
// implementations exist: memstore (process-local, default and used in
// tests) and natsstore (JetStream KV, used when a NATS URL is configured).
type Store interface {
	Save(id string, q Query) error
	Delete(id string) error
	List() (map[string]Query, error)
	Close() error
}
