package progress

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event every progress message is emitted under.
const EventName = "progress"

// SocketOptions configures DialSocket.
type SocketOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketSink streams events to a socket.io server, for example a dashboard
// following a long provisioning run.
type SocketSink struct {
	mu sync.Mutex
	io *socket.Socket
}

// DialSocket connects to a socket.io server and waits for the connection to
// be established, the context to be cancelled or the timeout to expire.
func DialSocket(ctx context.Context, opts SocketOptions) (*SocketSink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", opts.URL)
	logger.Debug("Connecting progress feed...")

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse progress URL: %w", err)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	sockOpts := socket.DefaultOptions()
	sockOpts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)

	io.Once(types.EventName("connect"), func(...any) {
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				connectChan <- err
				return
			}
		}
		connectChan <- fmt.Errorf("connect_error: %v", errs)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		logger.Info("Progress feed connected", "sid", io.Id())
		return &SocketSink{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Emit implements Sink.
func (s *SocketSink) Emit(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.io.Emit(EventName, payload(ev))
}

// Close disconnects from the server.
func (s *SocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.io.Disconnect()
	return nil
}

// payload is the JSON-friendly shape of an event on the wire.
func payload(ev Event) map[string]any {
	out := map[string]any{
		"phase":   string(ev.Phase),
		"message": ev.Message,
		"text":    ev.String(),
	}
	if ev.Layer != NoLayer {
		out["layer"] = ev.Layer
	}
	if ev.Project != "" {
		out["project"] = ev.Project
	}
	return out
}
