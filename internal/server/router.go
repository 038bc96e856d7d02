package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-accounts/internal/accounts"
	"github.com/celerix-dev/celerix-accounts/internal/logging"
)

// AccountService is what the router dispatches SIGNUP and LOGIN to.
type AccountService interface {
	Register(ctx context.Context, email, password string) accounts.Outcome
	Authenticate(ctx context.Context, email, password string) accounts.Outcome
}

type Router struct {
	svc  AccountService
	log  logging.Logger
	cert *tls.Certificate

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewRouter(svc AccountService, log logging.Logger) *Router {
	return &Router{svc: svc, log: log}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Addr returns the bound address, or nil before Listen has bound.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen starts the TCP server and blocks until Stop is called.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return listener.Close()
	}
	r.listener = listener
	r.mu.Unlock()
	defer listener.Close()

	semaphore := make(chan struct{}, 100) // Max 100 concurrent connections

	for {
		conn, err := listener.Accept()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.log.Warn(context.Background(), "tcp accept failed", "error", err)
			continue
		}

		conn.SetDeadline(time.Now().Add(5 * time.Minute))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.handleConnection(c)
		}(conn)
	}
}

// Stop closes the listener; in-flight connections finish on their own deadlines.
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.listener == nil {
		return nil
	}
	return r.listener.Close()
}

func (r *Router) handleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		line, err := reader.ReadString('\n')
		if err != nil {
			return // Connection closed or timeout
		}

		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		cmd, rest, _ := strings.Cut(line, " ")
		command := strings.ToUpper(strings.TrimSpace(cmd))
		if command == "" {
			continue
		}

		switch command {
		case "SIGNUP", "LOGIN":
			email, password, err := parseCredentials(rest)
			if err != nil {
				fmt.Fprintln(conn, "ERR 400 malformed arguments")
				continue
			}
			var out accounts.Outcome
			if command == "SIGNUP" {
				out = r.svc.Register(context.Background(), email, password)
			} else {
				out = r.svc.Authenticate(context.Background(), email, password)
			}
			writeOutcome(conn, out)

		case "PING":
			fmt.Fprintln(conn, "PONG")

		case "QUIT":
			return

		default:
			fmt.Fprintln(conn, "ERR 400 unknown command")
		}
	}
}

var errMalformedArgs = errors.New("malformed arguments")

// parseCredentials splits "<email> <password>". Either argument may be a Go
// quoted string, which is how the SDK sends them so that spaces, quotes and
// line breaks survive. A bare password runs to the end of the line verbatim.
func parseCredentials(rest string) (email, password string, err error) {
	rest = strings.TrimLeft(rest, " ")
	if rest == "" {
		return "", "", nil
	}

	if strings.HasPrefix(rest, `"`) {
		if email, rest, err = unquoteArg(rest); err != nil {
			return "", "", err
		}
		if rest != "" && !strings.HasPrefix(rest, " ") {
			return "", "", errMalformedArgs
		}
		rest = strings.TrimPrefix(rest, " ")
	} else {
		email, rest, _ = strings.Cut(rest, " ")
	}

	if !strings.HasPrefix(rest, `"`) {
		return email, rest, nil
	}
	password, rest, err = unquoteArg(rest)
	if err != nil {
		return "", "", err
	}
	if rest != "" {
		return "", "", errMalformedArgs
	}
	return email, password, nil
}

// unquoteArg decodes the quoted string at the start of s and returns the rest.
func unquoteArg(s string) (string, string, error) {
	quoted, err := strconv.QuotedPrefix(s)
	if err != nil {
		return "", "", errMalformedArgs
	}
	value, err := strconv.Unquote(quoted)
	if err != nil {
		return "", "", errMalformedArgs
	}
	return value, s[len(quoted):], nil
}

func writeOutcome(conn net.Conn, out accounts.Outcome) {
	if out.OK() {
		fmt.Fprintln(conn, "OK", out.Message)
		return
	}
	fmt.Fprintln(conn, "ERR", out.Kind.HTTPStatus(), out.Message)
}
