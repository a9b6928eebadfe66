// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// WebSocketChannel carries raw serial bytes over a WebSocket bridge as
// binary messages. A background reader feeds incoming messages so that
// reads can honour a timeout without tearing down the connection.
type WebSocketChannel struct {
	conn     *websocket.Conn
	incoming chan []byte
	done     chan struct{}

	mu        sync.Mutex
	buf       []byte
	timeout   time.Duration
	readErr   error
	closeOnce sync.Once
}

func newWebSocketChannel(conn *websocket.Conn) *WebSocketChannel {
	w := &WebSocketChannel{
		conn:     conn,
		incoming: make(chan []byte, 16),
		done:     make(chan struct{}),
		timeout:  DefaultPollInterval,
	}
	go w.pump()
	return w
}

func (w *WebSocketChannel) pump() {
	defer close(w.incoming)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.readErr = err
			w.mu.Unlock()
			return
		}
		// Only binary messages carry serial data
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case w.incoming <- data:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocketChannel) Read(p []byte) (int, error) {
	w.mu.Lock()
	if len(w.buf) > 0 {
		n := copy(p, w.buf)
		w.buf = w.buf[n:]
		w.mu.Unlock()
		return n, nil
	}
	timeout := w.timeout
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data, ok := <-w.incoming:
		if !ok {
			return 0, ErrConnectionClosed
		}
		n := copy(p, data)
		if n < len(data) {
			w.mu.Lock()
			w.buf = append(w.buf, data[n:]...)
			w.mu.Unlock()
		}
		return n, nil
	case <-timer.C:
		return 0, nil
	case <-w.done:
		return 0, ErrConnectionClosed
	}
}

func (w *WebSocketChannel) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketChannel) SetReadTimeout(t time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeout = t
	return nil
}

// ResetInputBuffer discards the partially read message and every message
// queued by the reader.
func (w *WebSocketChannel) ResetInputBuffer() error {
	w.mu.Lock()
	w.buf = nil
	w.mu.Unlock()
	for {
		select {
		case _, ok := <-w.incoming:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

func (w *WebSocketChannel) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}

// WebSocketOpener dials <BaseURL>/<channel> on a serial-to-WebSocket bridge.
type WebSocketOpener struct {
	BaseURL       string
	Username      string
	Password      string
	SkipSSLVerify bool
}

// ChannelURL returns the bridge URL serving channel.
func (o WebSocketOpener) ChannelURL(channel string) (string, error) {
	u, err := url.Parse(o.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return "", fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	base := strings.TrimSuffix(u.Path, "/")
	name := strings.TrimPrefix(channel, "/")
	u.Path = base + "/" + name
	u.RawPath = base + "/" + url.PathEscape(name)
	return u.String(), nil
}

// Open dials the bridge endpoint for channel.
func (o WebSocketOpener) Open(channel string, cfg Config) (Channel, error) {
	wsURL, err := o.ChannelURL(channel)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if strings.HasPrefix(wsURL, "wss") {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: o.SkipSSLVerify,
		}
	}

	// Build HTTP headers with Basic auth
	headers := http.Header{}
	if o.Username != "" && o.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(o.Username + ":" + o.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}
	headers.Set("X-Baud-Rate", fmt.Sprint(cfg.BaudRate))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return newWebSocketChannel(conn), nil
}
