package core_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/synnergy-chain/syncstore/core"
)

// writeFixture drops a fixture blob under a fresh t.TempDir() and returns its
// bytes back, exercising the same write/read path a real IPFS add would see
// before it ever reaches the gateway.
func writeFixture(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return got
}

// fakeGateway emulates just enough of an IPFS HTTP API for IPFSValueStore:
// pin-on-add and fetch-by-CID, keyed by the CID string.
func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	blobs := map[string][]byte{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		digest, err := mh.Sum(buf, mh.SHA2_256, -1)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		c := cid.NewCidV1(cid.Raw, digest).String()
		blobs[c] = buf
		json.NewEncoder(w).Encode(map[string]string{"Hash": c})
	})
	mux.HandleFunc("/ipfs/", func(w http.ResponseWriter, r *http.Request) {
		c := r.URL.Path[len("/ipfs/"):]
		b, ok := blobs[c]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(b)
	})
	return httptest.NewServer(mux)
}

func TestIPFSValueStoreWriteReadRoundTrip(t *testing.T) {
	data := writeFixture(t, "fixture.bin", []byte("object bytes"))

	gw := fakeGateway(t)
	defer gw.Close()

	s, err := core.NewIPFSValueStore(core.IPFSValueStoreConfig{Gateway: gw.URL, HotCacheSize: 4}, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	k, err := s.Write(core.Value(data))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok := s.Read(k)
	if !ok || string(got) != string(data) {
		t.Fatalf("read: got %q ok=%v, want %q", got, ok, data)
	}
}

func TestIPFSValueStoreHotCacheServesWithoutGateway(t *testing.T) {
	gw := fakeGateway(t)
	s, err := core.NewIPFSValueStore(core.IPFSValueStoreConfig{Gateway: gw.URL, HotCacheSize: 4}, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	k, err := s.Write(core.Value("cached"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	gw.Close() // gateway now unreachable; only the hot cache can serve Read

	got, ok := s.Read(k)
	if !ok || string(got) != "cached" {
		t.Fatalf("read: got %q ok=%v", got, ok)
	}
}
