// Package wsprovider reaches a wallet capability through a JSON-RPC 2.0 bridge over a
// websocket, using the wallet_enable / wallet_invokeSnap request pair.
package wsprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Proton-105/onramp/internal/capability"
)

const (
	methodEnable = "wallet_enable"
	methodInvoke = "wallet_invokeSnap"

	jsonRPCVersion = "2.0"
	pingTimeout    = 5 * time.Second
	closeGrace     = time.Second
)

// ErrClosed is returned for calls on a provider whose connection is gone.
var ErrClosed = errors.New("wallet bridge connection closed")

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string                  `json:"jsonrpc"`
	ID      uint64                  `json:"id"`
	Result  json.RawMessage         `json:"result,omitempty"`
	Error   *capability.RemoteError `json:"error,omitempty"`
}

// Provider is a capability.Provider backed by one websocket connection. Calls may be
// issued concurrently; responses are matched to callers by request id.
type Provider struct {
	conn *websocket.Conn
	log  *slog.Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan rpcResponse

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var (
	_ capability.Provider      = (*Provider)(nil)
	_ capability.HealthChecker = (*Provider)(nil)
)

// Dial connects to the bridge at url and starts reading responses.
func Dial(ctx context.Context, url string, header http.Header, log *slog.Logger) (*Provider, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial wallet bridge: %w", err)
	}

	return New(conn, log), nil
}

// New wraps an established connection.
func New(conn *websocket.Conn, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}

	p := &Provider{
		conn:    conn,
		log:     log,
		pending: make(map[uint64]chan rpcResponse),
		closed:  make(chan struct{}),
	}

	go p.readLoop()

	return p
}

// Enable asks the wallet to enable capabilityID.
func (p *Provider) Enable(ctx context.Context, capabilityID string) error {
	params := []any{
		map[string]any{
			"wallet_snap": map[string]any{capabilityID: map[string]any{}},
		},
	}

	_, err := p.call(ctx, methodEnable, params)
	return err
}

// Invoke sends req to capabilityID and returns the raw result.
func (p *Provider) Invoke(ctx context.Context, capabilityID string, req capability.Request) (json.RawMessage, error) {
	return p.call(ctx, methodInvoke, []any{capabilityID, req})
}

// HealthCheck pings the bridge.
func (p *Provider) HealthCheck(ctx context.Context) error {
	select {
	case <-p.closed:
		return p.closedErr()
	default:
	}

	deadline := time.Now().Add(pingTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	return p.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

// Close sends a close frame, tears the connection down and fails outstanding calls.
func (p *Provider) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))

	p.shutdown(ErrClosed)
	return p.conn.Close()
}

func (p *Provider) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := p.nextID.Add(1)
	ch := make(chan rpcResponse, 1)

	p.mu.Lock()
	select {
	case <-p.closed:
		p.mu.Unlock()
		return nil, p.closedErr()
	default:
	}
	p.pending[id] = ch
	p.mu.Unlock()

	if err := p.write(ctx, rpcRequest{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: params}); err != nil {
		p.forget(id)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		p.forget(id)
		return nil, ctx.Err()
	case <-p.closed:
		return nil, p.closedErr()
	}
}

func (p *Provider) write(ctx context.Context, req rpcRequest) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := p.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return p.conn.WriteJSON(req)
}

func (p *Provider) readLoop() {
	for {
		var resp rpcResponse
		if err := p.conn.ReadJSON(&resp); err != nil {
			select {
			case <-p.closed:
				return
			default:
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.shutdown(ErrClosed)
			} else {
				p.log.Warn("wallet bridge read failed", slog.Any("error", err))
				p.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			}
			return
		}

		p.mu.Lock()
		ch, ok := p.pending[resp.ID]
		delete(p.pending, resp.ID)
		p.mu.Unlock()

		if !ok {
			p.log.Debug("dropping response for unknown request", slog.Uint64("id", resp.ID))
			continue
		}

		ch <- resp
	}
}

func (p *Provider) forget(id uint64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

func (p *Provider) shutdown(err error) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closeErr = err
		p.pending = make(map[uint64]chan rpcResponse)
		close(p.closed)
		p.mu.Unlock()
	})
}

func (p *Provider) closedErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closeErr != nil {
		return p.closeErr
	}
	return ErrClosed
}
