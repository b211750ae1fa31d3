// Package main provides a CLI tool for generating test bearer tokens for the
// custodia API. These tokens use the dev signing key and will NOT work in
// production.
package main

import (
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"custodia/internal/platform/clock"
	"custodia/internal/token"
	id "custodia/pkg/domain"
)

const (
	// Dev signing key matching config.FromEnv when JWT_SIGNING_KEY is unset.
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "custodia"
	defaultAudience = "custodia-api"
	defaultTokenTTL = 24 * time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Account   string            `json:"account"`
	SessionID string            `json:"session_id"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	account := flag.String("account", "", "Account ID the token is issued for (required)")
	sessionID := flag.String("session-id", "", "Session ID (64 hex chars). Generated if empty.")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	signingKey := flag.String("signing-key", devSigningKey, "HMAC signing key")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *account == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -account is required")
		flag.Usage()
		os.Exit(1)
	}

	acct, err := id.ParseAccountID(*account)
	if err != nil {
		fatal("invalid account: %v", err)
	}

	var sid id.SessionID
	if *sessionID == "" {
		if _, err := rand.Read(sid[:]); err != nil {
			fatal("generate session ID: %v", err)
		}
	} else {
		sid, err = id.ParseSessionID(*sessionID)
		if err != nil {
			fatal("invalid session ID: %v", err)
		}
	}

	svc := token.NewService(*signingKey, defaultIssuer, defaultAudience, *ttl, clock.System{})
	signed, err := svc.Generate(acct, sid)
	if err != nil {
		fatal("generate token: %v", err)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tokenOutput{
			Token:     signed,
			ExpiresIn: ttl.String(),
			Account:   acct.String(),
			SessionID: sid.String(),
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
				"note":   "Server rejects tokens whose session is not live; prefer POST /auth/sessions against a running server.",
			},
		}); err != nil {
			fatal("encode JSON: %v", err)
		}
		return
	}

	fmt.Println("Bearer Token")
	fmt.Println("============")
	fmt.Printf("Account:    %s\n", acct)
	fmt.Printf("Session ID: %s\n", sid)
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(signed)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/...")
	fmt.Println()
	fmt.Println("Note: the server rejects tokens whose session is not live.")
	fmt.Println("      Prefer POST /auth/sessions against a running server.")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tokengen: "+format+"\n", args...)
	os.Exit(1)
}
