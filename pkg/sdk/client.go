// Package sdk provides the client-side library for the Celerix account service.
// It supports both remote connections via TCP/TLS and local embedded mode.
package sdk

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Client is a remote client for the account daemon's TCP protocol.
// It implements the AccountStore interface.
type Client struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // Protects concurrent access to the connection
}

// Connect establishes a TLS-encrypted connection to a remote account daemon.
// If ACCOUNTS_DISABLE_TLS is set to "true", it falls back to plain TCP.
func Connect(addr string) (*Client, error) {
	c := &Client{addr: addr}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	var conn net.Conn
	var err error

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	if os.Getenv("ACCOUNTS_DISABLE_TLS") == "true" {
		conn, err = dialer.Dial("tcp", c.addr)
	} else {
		config := &tls.Config{
			InsecureSkipVerify: true, // The daemon uses a self-signed cert
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	}

	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// sendAndReceive writes one command line and reads one response line.
// Only failures before the command is written are retried: once the daemon
// may have seen a SIGNUP, repeating it could register the user twice.
func (c *Client) sendAndReceive(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	written := false

	for i := 0; i < 3 && !written; i++ {
		if c.conn == nil {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				err = fmt.Errorf("reconnect failed: %w", reconnectErr)
				time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
				continue
			}
		}

		c.conn.SetDeadline(time.Now().Add(30 * time.Second))

		if _, err = fmt.Fprint(c.conn, cmd+"\n"); err == nil {
			written = true
			break
		}

		fmt.Fprintf(os.Stderr, "[Accounts SDK] Attempt %d failed: %v. Reconnecting...\n", i+1, err)
		if closeErr := c.reconnect(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "[Accounts SDK] Reconnect attempt failed: %v\n", closeErr)
		}
		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}
	if !written {
		return "", fmt.Errorf("failed after 3 attempts. last error: %v", err)
	}

	resp, err := c.reader.ReadString('\n')
	if err != nil {
		c.conn.Close()
		c.conn = nil
		return "", fmt.Errorf("read response: %w", err)
	}
	return parseResponse(strings.TrimSpace(resp))
}

// parseResponse turns "OK <msg>" into msg and "ERR <code> <msg>" into *Error.
func parseResponse(resp string) (string, error) {
	switch {
	case resp == "OK", resp == "PONG":
		return resp, nil
	case strings.HasPrefix(resp, "OK "):
		return strings.TrimPrefix(resp, "OK "), nil
	case strings.HasPrefix(resp, "ERR "):
		rest := strings.TrimPrefix(resp, "ERR ")
		codeStr, msg, _ := strings.Cut(rest, " ")
		code, err := strconv.Atoi(codeStr)
		if err != nil {
			return "", &Error{Code: 500, Message: rest}
		}
		return "", &Error{Code: code, Message: msg}
	}
	return "", fmt.Errorf("unexpected response %q", resp)
}

// Credentials are sent quoted so that each command stays on one line and
// passwords keep their exact spacing.
func (c *Client) Register(email, password string) (string, error) {
	return c.sendAndReceive(fmt.Sprintf("SIGNUP %s %s", strconv.Quote(email), strconv.Quote(password)))
}

func (c *Client) Authenticate(email, password string) (string, error) {
	return c.sendAndReceive(fmt.Sprintf("LOGIN %s %s", strconv.Quote(email), strconv.Quote(password)))
}

func (c *Client) Ping() error {
	resp, err := c.sendAndReceive("PING")
	if err != nil {
		return err
	}
	if resp != "PONG" {
		return fmt.Errorf("unexpected ping response %q", resp)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}
