package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/kerrors"
	"github.com/giantswarm/fleetkube/middleware"
	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/pathbuilder"
)

// Channel is one multiplexed byte stream within a Connect session, per
// the v4.channel.k8s.io subprotocol spec.md §4.7 documents.
type Channel byte

const (
	ChannelStdin  Channel = 0
	ChannelStdout Channel = 1
	ChannelStderr Channel = 2
	ChannelError  Channel = 3
	ChannelResize Channel = 4
)

// Frame is one channel-prefixed message.
type Frame struct {
	Channel Channel
	Data    []byte
}

// Session is an open exec/attach/portforward connection: every channel
// multiplexed over one WebSocket, distinguished by Frame.Channel.
type Session struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// Send writes data on ch.
func (s *Session) Send(ch Channel, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	frame := append([]byte{byte(ch)}, data...)
	return s.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Recv blocks for the next frame.
func (s *Session) Recv() (Frame, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return Frame{}, &kerrors.TransportError{Kind: kerrors.TransportReset, Err: err}
	}
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("transport: empty connect frame")
	}
	return Frame{Channel: Channel(data[0]), Data: data[1:]}, nil
}

// Close ends the session.
func (s *Session) Close() error {
	return s.conn.Close()
}

// Connect opens a Connect-verb operation (exec, attach, or portforward,
// selected by op.Subresource) as a multiplexed WebSocket session. Unlike
// Do/List/Watch, Connect does not use the pool's *http.Transport: a
// connect session owns a dedicated, long-lived socket for its whole
// lifetime rather than borrowing one for a single round trip.
func (r *Runtime) Connect(ctx context.Context, op operation.Operation, desc discovery.ResourceDescriptor) (*Session, error) {
	built, err := pathbuilder.Build(op, desc)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(r.Conn.Server)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid server URL %q: %w", r.Conn.Server, err)
	}
	wsScheme := "wss"
	if base.Scheme == "http" {
		wsScheme = "ws"
	}
	target := url.URL{
		Scheme:   wsScheme,
		Host:     base.Host,
		Path:     singleJoiningSlash(base.Path, built.Path),
		RawQuery: built.Query.Encode(),
	}

	req, err := r.Stack.ApplyRequest(middleware.Request{Header: make(http.Header)})
	if err != nil {
		return nil, err
	}

	tlsCfg := req.TLS
	if tlsCfg == nil {
		tlsCfg, err = r.Conn.TLSConfig()
		if err != nil {
			return nil, err
		}
	}

	dialer := &websocket.Dialer{
		TLSClientConfig: tlsCfg,
		// Offer the full fallback chain spec.md §6 documents so an
		// older API server that only understands an earlier exec
		// protocol revision still negotiates a usable subprotocol.
		Subprotocols: []string{
			"v4.channel.k8s.io",
			"v3.channel.k8s.io",
			"v2.channel.k8s.io",
			"channel.k8s.io",
		},
	}

	conn, resp, err := dialer.DialContext(ctx, target.String(), req.Header)
	if err != nil {
		if resp != nil {
			return nil, &kerrors.HTTPError{StatusCode: resp.StatusCode}
		}
		return nil, &kerrors.TransportError{Kind: kerrors.TransportRefused, Err: err}
	}
	return &Session{conn: conn}, nil
}
