// Command csctl is a small CredoSafe CLI: sign in, list and inspect
// vouchers, redeem codes, and check the wallet. It persists the bearer token
// between runs in an encrypted credentials file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/credosafe/credosafe-go/client"
	"github.com/credosafe/credosafe-go/internal/config"
	"github.com/credosafe/credosafe-go/session"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.RequireAPI(); err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	tokens, err := tokenStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open credentials")
	}

	api, err := client.New(client.Config{
		BaseURL: cfg.APIBaseURL,
		Tokens:  tokens,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout+5*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "login":
		runLogin(ctx, api, tokens, os.Args[2:])
	case "logout":
		runLogout(ctx, api, tokens)
	case "vouchers":
		printEnvelope(api.Vouchers().List(ctx))
	case "voucher":
		requireArg(os.Args, 2, "voucher <id>")
		printEnvelope(api.Vouchers().Get(ctx, os.Args[2]))
	case "search":
		requireArg(os.Args, 2, "search <code>")
		printEnvelope(api.Vouchers().Search(ctx, os.Args[2]))
	case "redeem":
		requireArg(os.Args, 2, "redeem <code>")
		printEnvelope(api.Vouchers().Redeem(ctx, os.Args[2]))
	case "balance":
		printEnvelope(api.Wallet().Balance(ctx))
	case "whoami":
		printEnvelope(api.Users().Current(ctx))
	default:
		usage()
		os.Exit(2)
	}
}

func runLogin(ctx context.Context, api *client.Client, tokens session.TokenStore, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "login requires -email and -password")
		os.Exit(2)
	}

	env := api.Auth().Login(ctx, *email, *password)
	if err := env.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var result client.LoginResult
	if err := env.Decode(&result); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := tokens.Set(result.Token); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("signed in as %s\n", *email)
	if claims, err := session.InspectToken(result.Token); err == nil && !claims.ExpiresAt.IsZero() {
		fmt.Printf("token expires %s\n", claims.ExpiresAt.Format(time.RFC3339))
	}
}

func runLogout(ctx context.Context, api *client.Client, tokens session.TokenStore) {
	env := api.Auth().Logout(ctx)
	if err := tokens.Remove(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := env.Err(); err != nil {
		// Local credentials are gone either way.
		fmt.Fprintf(os.Stderr, "server logout failed: %v\n", err)
	}
	fmt.Println("signed out")
}

func tokenStore(cfg *config.Config) (session.TokenStore, error) {
	path := cfg.CredentialsFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".credosafe", "credentials")
	}
	secret := cfg.CredentialsSecret
	if secret == "" {
		// Derived from the host identity rather than a shared constant.
		hostname, _ := os.Hostname()
		secret = "credosafe-" + hostname
	}
	return session.NewFileTokenStore(path, []byte(secret))
}

func printEnvelope(env *client.Envelope) {
	if err := env.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var pretty any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &pretty); err != nil {
			pretty = string(env.Data)
		}
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}

func requireArg(args []string, index int, usageText string) {
	if len(args) <= index {
		fmt.Fprintf(os.Stderr, "usage: csctl %s\n", usageText)
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: csctl <command> [args]

commands:
  login -email <email> -password <password>
  logout
  whoami
  vouchers
  voucher <id>
  search <code>
  redeem <code>
  balance`)
}
