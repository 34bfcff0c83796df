package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/sirupsen/logrus"
)

// IPFSValueStoreConfig configures an IPFSValueStore.
type IPFSValueStoreConfig struct {
	Gateway      string        // e.g. "http://127.0.0.1:5001"
	Timeout      time.Duration // per-request HTTP timeout
	HotCacheSize int           // in-process LRU entries, 0 disables the hot tier
}

// IPFSValueStore is a ValueStore backed by an IPFS HTTP gateway, fronted by
// an in-process LRU of recently used values. It computes the wire Key
// locally as the digest of a SHA-256 multihash of the value, and Write
// rejects a gateway response whose CID differs from the locally computed
// one: IPFSValueStore only supports SHA-256 multihashes, matching Key's
// fixed 32-byte width.
type IPFSValueStore struct {
	cfg    IPFSValueStoreConfig
	client *http.Client
	hot    *lru.Cache[Key, Value]
	logger *logrus.Logger
}

// NewIPFSValueStore wires a gateway-backed ValueStore. A zero-value
// HotCacheSize disables the hot cache tier entirely.
func NewIPFSValueStore(cfg IPFSValueStoreConfig, logger *logrus.Logger) (*IPFSValueStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &IPFSValueStore{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	if cfg.HotCacheSize > 0 {
		c, err := lru.New[Key, Value](cfg.HotCacheSize)
		if err != nil {
			return nil, err
		}
		s.hot = c
	}
	return s, nil
}

// sha256Multihash derives the Key (a raw SHA-256 multihash digest) from v
// without making a network call, so Write can serve cache hits and Read
// callers can address content they have not yet fetched.
func sha256Multihash(v Value) (Key, error) {
	digest, err := mh.Sum(v, mh.SHA2_256, -1)
	if err != nil {
		return Key{}, err
	}
	decoded, err := mh.Decode(digest)
	if err != nil {
		return Key{}, err
	}
	var k Key
	if len(decoded.Digest) != len(k) {
		return Key{}, fmt.Errorf("%w: unexpected digest length %d", ErrUnsupportedBackend, len(decoded.Digest))
	}
	copy(k[:], decoded.Digest)
	return k, nil
}

func (s *IPFSValueStore) cidFor(v Value) (cid.Cid, error) {
	digest, err := mh.Sum(v, mh.SHA2_256, -1)
	if err != nil {
		return cid.Cid{}, err
	}
	return cid.NewCidV1(cid.Raw, digest), nil
}

// Write implements ValueStore by pinning v to the configured gateway.
func (s *IPFSValueStore) Write(v Value) (Key, error) {
	k, err := sha256Multihash(v)
	if err != nil {
		return Key{}, err
	}
	if s.hot != nil {
		if _, ok := s.hot.Get(k); ok {
			return k, nil
		}
	}

	c, err := s.cidFor(v)
	if err != nil {
		return Key{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.Gateway+"/api/v0/add?pin=true", bytes.NewReader(v))
	if err != nil {
		return Key{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return Key{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Key{}, fmt.Errorf("gateway pin %d: %s", resp.StatusCode, string(b))
	}

	var meta struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return Key{}, fmt.Errorf("decode gateway response: %w", err)
	}
	if meta.Hash != c.String() {
		return Key{}, fmt.Errorf("%w: cid mismatch between local and gateway", ErrUnsupportedBackend)
	}

	if s.hot != nil {
		s.hot.Add(k, append(Value(nil), v...))
	}
	s.logger.WithFields(logrus.Fields{"cid": c.String(), "bytes": len(v)}).Debug("ipfs: pinned value")
	return k, nil
}

// Read implements ValueStore, checking the hot cache before the gateway.
func (s *IPFSValueStore) Read(k Key) (Value, bool) {
	if s.hot != nil {
		if v, ok := s.hot.Get(k); ok {
			return v, true
		}
	}

	digest, err := mh.Encode(k[:], mh.SHA2_256)
	if err != nil {
		return nil, false
	}
	c := cid.NewCidV1(cid.Raw, digest)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Gateway+"/ipfs/"+c.String(), nil)
	if err != nil {
		return nil, false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}

	v := Value(data)
	if s.hot != nil {
		s.hot.Add(k, append(Value(nil), v...))
	}
	return v, true
}
