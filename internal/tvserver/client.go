// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/ManuGH/tvinput/internal/codec"
	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/rs/zerolog"
)

// Client is one live connection to the platform service. Calls are
// multiplexed by request id; events are delivered on the read goroutine.
// When the connection ends the Died channel is closed and the client is
// unusable; a new one must be dialed.
type Client struct {
	conn   net.Conn
	logger zerolog.Logger

	wmu sync.Mutex
	enc *codec.Encoder

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan frame
	readErr error

	cbMu     sync.RWMutex
	callback Callback

	died      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the service socket at path.
func Dial(ctx context.Context, path string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection and starts its read loop.
func NewClient(conn net.Conn) *Client {
	c := &Client{
		conn:    conn,
		logger:  xglog.WithComponent("tvserver.client"),
		enc:     codec.NewEncoder(conn),
		pending: make(map[uint64]chan frame),
		died:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Died is closed once the connection has ended for any reason.
func (c *Client) Died() <-chan struct{} {
	return c.died
}

// Err returns the error that ended the connection, nil while it is alive.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Call performs one synchronous request/response exchange.
func (c *Client) Call(ctx context.Context, op string, args Args) (Reply, error) {
	ch := make(chan frame, 1)

	c.mu.Lock()
	if c.readErr != nil {
		c.mu.Unlock()
		return Reply{}, ErrConnectionClosed
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	req := frame{Kind: kindRequest, ID: id, Op: op, Ints: args.Ints, Strings: args.Strings}
	if err := c.write(req); err != nil {
		c.forget(id)
		return Reply{}, fmt.Errorf("%w: write %s: %v", ErrConnectionClosed, op, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return resp.reply(), &ServiceError{Op: op, Message: resp.Error}
		}
		return resp.reply(), nil
	case <-c.died:
		// The response may have raced the close.
		select {
		case resp := <-ch:
			if resp.Error != "" {
				return resp.reply(), &ServiceError{Op: op, Message: resp.Error}
			}
			return resp.reply(), nil
		default:
		}
		return Reply{}, ErrConnectionClosed
	case <-ctx.Done():
		c.forget(id)
		return Reply{}, ctx.Err()
	}
}

// Subscribe installs cb as the event callback and registers it with the
// service under connectType.
func (c *Client) Subscribe(ctx context.Context, connectType string, cb Callback) error {
	c.cbMu.Lock()
	c.callback = cb
	c.cbMu.Unlock()

	reply, err := c.Call(ctx, OpSetCallback, Strings(connectType))
	if err != nil {
		return err
	}
	if !reply.Result.IsOK() {
		return &ServiceError{Op: OpSetCallback, Message: reply.Result.String()}
	}
	return nil
}

// Close ends the connection and waits for the read loop to exit.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	<-c.died
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (c *Client) write(f frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.enc.Encode(f)
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	dec := codec.NewDecoder(c.conn)
	var err error
	for {
		var f frame
		if err = dec.Decode(&f); err != nil {
			break
		}
		switch f.Kind {
		case kindResponse:
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			delete(c.pending, f.ID)
			c.mu.Unlock()
			if ok {
				ch <- f
			}
		case kindEvent:
			c.cbMu.RLock()
			cb := c.callback
			c.cbMu.RUnlock()
			if cb != nil {
				cb(f.event())
			}
		default:
			c.logger.Warn().
				Str(xglog.FieldEvent, "tvserver.unexpected_frame").
				Uint8("kind", uint8(f.Kind)).
				Msg("ignoring unexpected frame")
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		err = ErrConnectionClosed
	}
	c.mu.Lock()
	c.readErr = err
	c.pending = make(map[uint64]chan frame)
	c.mu.Unlock()

	_ = c.conn.Close()
	close(c.died)
}
