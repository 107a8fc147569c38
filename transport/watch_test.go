package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/giantswarm/fleetkube/auth"
	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/middleware"
	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/pool"
)

// errStop is what the test sink returns once it has seen enough events, so
// Watch unwinds instead of reconnecting forever.
var errStop = errors.New("stop")

func writeWatchEvent(w http.ResponseWriter, rv string) {
	line, _ := json.Marshal(map[string]interface{}{
		"type": "Modified",
		"object": map[string]interface{}{
			"metadata": map[string]interface{}{"name": "web", "resourceVersion": rv},
		},
	})
	w.Write(line)
	w.Write([]byte("\n"))
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestWatchReconnectsAtCursorWithNoDuplicates(t *testing.T) {
	var mu sync.Mutex
	var connects []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rv := req.URL.Query().Get("resourceVersion")
		mu.Lock()
		connects = append(connects, rv)
		mu.Unlock()

		switch rv {
		case "":
			// First connection: deliver rv=100, rv=101, then close (as if
			// the connection was interrupted after 2 events).
			writeWatchEvent(w, "100")
			writeWatchEvent(w, "101")
		case "101":
			// Reconnect resumes after the last delivered resourceVersion.
			writeWatchEvent(w, "102")
		default:
			t.Errorf("unexpected resourceVersion on reconnect: %q", rv)
		}
	}))
	defer srv.Close()

	conn := connection.Connection{Server: srv.URL, Anonymous: true}
	p := pool.New(pool.Options{})
	defer p.Close()
	stack := middleware.NewDefaultStack(auth.NewChain(), conn)
	rt := New(conn, p, stack)

	var seen []string
	op := operation.NewWatch("v1", "pods", "default")
	err := rt.Watch(context.Background(), op, podListDesc, func(evt Event) error {
		seen = append(seen, evt.Object.GetResourceVersion())
		if len(seen) == 3 {
			return errStop
		}
		return nil
	})

	if !errors.Is(err, errStop) {
		t.Fatalf("expected errStop, got %v", err)
	}

	want := []string{"100", "101", "102"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("got events %v, want %v (no duplicates, in order)", seen, want)
	}
}
