package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/celerix-dev/celerix-accounts/internal/config"
	"github.com/celerix-dev/celerix-accounts/internal/logging"
	"github.com/celerix-dev/celerix-accounts/internal/vault"
	"github.com/celerix-dev/celerix-accounts/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	// Same settings the daemon reads, so embedded mode hashes the way it does.
	cfg, err := config.Load(os.Getenv("ACCOUNTS_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	hasher, err := vault.NewHasher(cfg.Auth.PasswordScheme, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatalf("Invalid password settings: %v", err)
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Invalid log settings: %v", err)
	}

	store, err := sdk.New(cfg.Store.Path,
		sdk.WithHasher(hasher),
		sdk.WithLogger(logger),
		sdk.WithIOTimeout(cfg.Store.IOTimeout),
	)
	if err != nil {
		log.Fatalf("Failed to open account store: %v", err)
	}
	defer store.Close()

	command := strings.ToUpper(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "SIGNUP":
		if len(args) < 2 {
			log.Fatal("Usage: celerix-accounts SIGNUP <email> <password>")
		}
		msg, err := store.Register(args[0], strings.Join(args[1:], " "))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(msg)

	case "LOGIN":
		if len(args) < 2 {
			log.Fatal("Usage: celerix-accounts LOGIN <email> <password>")
		}
		msg, err := store.Authenticate(args[0], strings.Join(args[1:], " "))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(msg)

	case "PING":
		client, ok := store.(*sdk.Client)
		if !ok {
			log.Fatal("PING needs a remote daemon; set ACCOUNTS_ADDR")
		}
		if err := client.Ping(); err != nil {
			log.Fatal(err)
		}
		fmt.Println("PONG")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Celerix Accounts CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  celerix-accounts SIGNUP <email> <password>")
	fmt.Println("  celerix-accounts LOGIN <email> <password>")
	fmt.Println("  celerix-accounts PING")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  ACCOUNTS_ADDR          Address of a running daemon (embedded mode when unset)")
	fmt.Println("  ACCOUNTS_DISABLE_TLS   Set to true to disable TLS")
	fmt.Println("  ACCOUNTS_CONFIG        YAML config shared with the daemon (optional)")
	fmt.Println("  STORE_PATH             Users file for embedded mode (default: users.json)")
	fmt.Println("  PASSWORD_SCHEME        bcrypt or plain for embedded mode (default: bcrypt)")
}
