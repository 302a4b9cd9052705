// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/optoforge/slcctl/pkg/slc"
)

// newController builds a Controller from the connection flags. Serial
// mode uses the library's own dialer; WebSocket mode injects a bridge
// connection (e.g. an RFC2217/ser2net gateway exposing the RS232 line).
// defaultPort is used when --port is not given (the program/verify
// commands pass the port from the config file).
func newController(defaultPort string) (*slc.Controller, string, error) {
	opts := []slc.Option{
		slc.WithBaudRate(baudRate),
		slc.WithTimeout(timeout),
	}

	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = getPassword()
			if err != nil {
				return nil, "", err
			}
		}
		opts = append(opts, slc.WithDialer(func() (slc.Conn, error) {
			return openWebSocketConn(wsURL, wsUsername, password, wsNoSSLVerify)
		}))
		return slc.New(wsURL, opts...), fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	port := portName
	if port == "" {
		port = defaultPort
	}
	if port == "" {
		return nil, "", fmt.Errorf("either --port or --url must be specified")
	}
	return slc.New(port, opts...), fmt.Sprintf("Serial: %s @ %d baud", port, baudRate), nil
}

// wsConn adapts a WebSocket message stream to the byte-stream interface
// the transport expects. Reads drain one binary message at a time; the
// read deadline keeps the transport's response loop from hanging forever
// on a silent bridge.
type wsConn struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	timeout   time.Duration
}

func (w *wsConn) Read(p []byte) (int, error) {
	// Serve buffered bytes first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	_ = w.conn.SetReadDeadline(time.Now().Add(w.timeout))
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		// Only binary messages carry serial data
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// openWebSocketConn opens a WebSocket bridge connection with HTTP Basic auth.
func openWebSocketConn(wsURL, username, password string, skipSSLVerify bool) (slc.Conn, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return &wsConn{conn: conn, timeout: timeout}, nil
}

// getPassword retrieves the bridge password from the environment or
// prompts for it without echo.
func getPassword() (string, error) {
	if pw := os.Getenv("SLC_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fall back to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}
