package core

import "github.com/sirupsen/logrus"

// Stores bundles the three store contracts a dispatcher, sync engine, and
// merge engine operate against. It is held read-only by the dispatcher and
// shared across handlers; all mutation goes through the individual store
// methods, which are responsible for their own internal synchronization.
type Stores struct {
	Keys   KeyStore
	Values ValueStore
	Tags   TagStore
}

// NewMemStores wires up the default in-memory backend: a MemKeyStore, a
// MemValueStore using the given hasher (nil defaults to SHA256Hasher), and a
// MemTagStore validating against the key store.
func NewMemStores(h Hasher) *Stores {
	keys := NewMemKeyStore()
	return &Stores{
		Keys:   keys,
		Values: NewMemValueStore(h),
		Tags:   NewMemTagStore(keys),
	}
}

// NewIPFSBackedStores wires up a Stores whose ValueStore pins and fetches
// values through an IPFS gateway instead of keeping them in memory. The key
// and tag stores remain in-memory: the DAG shape and branch pointers are
// small and latency-sensitive enough that the gateway round trip is worth
// paying only for the (potentially large) value bytes.
func NewIPFSBackedStores(cfg IPFSValueStoreConfig, logger *logrus.Logger) (*Stores, error) {
	values, err := NewIPFSValueStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	keys := NewMemKeyStore()
	return &Stores{
		Keys:   keys,
		Values: values,
		Tags:   NewMemTagStore(keys),
	}, nil
}
