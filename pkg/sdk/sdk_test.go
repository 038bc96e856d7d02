package sdk_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/celerix-dev/celerix-accounts/internal/accounts"
	"github.com/celerix-dev/celerix-accounts/internal/engine"
	"github.com/celerix-dev/celerix-accounts/internal/logging"
	"github.com/celerix-dev/celerix-accounts/internal/server"
	"github.com/celerix-dev/celerix-accounts/internal/vault"
	"github.com/celerix-dev/celerix-accounts/pkg/sdk"
)

func startDaemon(t *testing.T) string {
	t.Helper()
	store, err := engine.NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	svc := accounts.NewService(store, vault.BcryptHasher{Cost: 4}, logging.Discard(), time.Second)
	router := server.NewRouter(svc, logging.Discard())
	go router.Listen("0")
	t.Cleanup(func() { router.Stop() })

	for i := 0; i < 20; i++ {
		time.Sleep(25 * time.Millisecond)
		if addr := router.Addr(); addr != nil {
			return fmt.Sprintf("127.0.0.1:%d", addr.(*net.TCPAddr).Port)
		}
	}
	t.Fatalf("Server did not start in time")
	return ""
}

func TestRemoteClient(t *testing.T) {
	t.Setenv("ACCOUNTS_DISABLE_TLS", "true")
	addr := startDaemon(t)

	client, err := sdk.Connect(addr)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	msg, err := client.Register("a@x.com", "p1")
	if err != nil || msg != "Signup successful!" {
		t.Fatalf("Register failed: %q, %v", msg, err)
	}

	msg, err = client.Authenticate("a@x.com", "p1")
	if err != nil || msg != "Login successful!" {
		t.Fatalf("Authenticate failed: %q, %v", msg, err)
	}

	_, err = client.Authenticate("a@x.com", "wrong")
	if !sdk.IsUnauthorized(err) {
		t.Errorf("Expected unauthorized error, got %v", err)
	}
	sdkErr, ok := err.(*sdk.Error)
	if !ok || sdkErr.Message != "Login failed: Invalid email or password." {
		t.Errorf("Unexpected error payload: %#v", err)
	}
}

func TestRemoteClient_PasswordsAreSentVerbatim(t *testing.T) {
	t.Setenv("ACCOUNTS_DISABLE_TLS", "true")
	addr := startDaemon(t)

	client, err := sdk.Connect(addr)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	smuggled := "pw\nSIGNUP evil@x.com evilpw"
	if _, err := client.Register("a@x.com", smuggled); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := client.Authenticate("evil@x.com", "evilpw"); !sdk.IsUnauthorized(err) {
		t.Errorf("A line break in a password must not start a second command, got %v", err)
	}
	if _, err := client.Authenticate("a@x.com", smuggled); err != nil {
		t.Errorf("Authenticate with the full password failed: %v", err)
	}

	// Replies must still line up with requests on the same connection.
	msg, err := client.Register("b@x.com", "  two  spaces ")
	if err != nil || msg != "Signup successful!" {
		t.Fatalf("Register failed: %q, %v", msg, err)
	}
	if _, err := client.Authenticate("b@x.com", "two spaces"); !sdk.IsUnauthorized(err) {
		t.Errorf("Collapsed spacing must not match, got %v", err)
	}
	if _, err := client.Authenticate("b@x.com", "  two  spaces "); err != nil {
		t.Errorf("Authenticate with exact spacing failed: %v", err)
	}
	if _, err := client.Register("c@x.com", `quote " and \ backslash`); err != nil {
		t.Errorf("Register with quotes failed: %v", err)
	}
	if _, err := client.Authenticate("c@x.com", `quote " and \ backslash`); err != nil {
		t.Errorf("Authenticate with quotes failed: %v", err)
	}
}

func TestEmbedded(t *testing.T) {
	store, err := sdk.NewEmbedded(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("NewEmbedded failed: %v", err)
	}
	defer store.Close()

	if _, err := store.Register("a@x.com", "p1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := store.Authenticate("a@x.com", "p1"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	_, err = store.Register("", "p1")
	sdkErr, ok := err.(*sdk.Error)
	if !ok || sdkErr.Code != 400 {
		t.Errorf("Expected 400 error, got %v", err)
	}
}

func TestEmbeddedOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "text", "debug")
	if err != nil {
		t.Fatalf("logging.New failed: %v", err)
	}

	store, err := sdk.NewEmbedded(path, sdk.WithHasher(vault.PlainHasher{}), sdk.WithLogger(logger))
	if err != nil {
		t.Fatalf("NewEmbedded failed: %v", err)
	}
	defer store.Close()

	if _, err := store.Register("a@x.com", "p1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var users []map[string]any
	if err := json.Unmarshal(raw, &users); err != nil {
		t.Fatalf("users file is not a JSON array: %v", err)
	}
	if len(users) != 1 || users[0]["password"] != "p1" {
		t.Errorf("Expected the plain scheme to store the password as given, got %s", raw)
	}
	if !strings.Contains(buf.String(), "a@x.com") {
		t.Errorf("Expected the service to log through the given logger, got %q", buf.String())
	}
}

func TestNewFallsBackToEmbedded(t *testing.T) {
	t.Setenv("ACCOUNTS_ADDR", "127.0.0.1:1")
	t.Setenv("ACCOUNTS_DISABLE_TLS", "true")

	store, err := sdk.New(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*sdk.Embedded); !ok {
		t.Errorf("Expected embedded store, got %T", store)
	}
}

func TestNewUsesRemote(t *testing.T) {
	t.Setenv("ACCOUNTS_DISABLE_TLS", "true")
	t.Setenv("ACCOUNTS_ADDR", startDaemon(t))

	store, err := sdk.New(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*sdk.Client); !ok {
		t.Errorf("Expected remote client, got %T", store)
	}
}

func TestErrorString(t *testing.T) {
	err := &sdk.Error{Code: 401, Message: "nope"}
	if err.Error() != "401 nope" {
		t.Errorf("Unexpected error string %q", err.Error())
	}
	if sdk.IsUnauthorized(fmt.Errorf("plain")) {
		t.Error("Plain errors are not unauthorized")
	}
}
