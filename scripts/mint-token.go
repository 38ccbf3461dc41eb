package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/model"
)

type output struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func main() {
	var (
		secret = flag.String("secret", envOr("SECRET_KEY", "JWT_SECRET"), "HMAC secret shared with the API")
		userID = flag.String("user-id", "", "User ID placed in the token (random when empty)")
		email  = flag.String("email", "", "Optional email claim")
		ttl    = flag.Duration("ttl", 24*time.Hour, "Token lifetime; 0 issues a token without expiry")
		format = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "SECRET_KEY, JWT_SECRET or -secret is required")
		os.Exit(1)
	}

	id := strings.TrimSpace(*userID)
	if id == "" {
		id = strings.ToLower(ulid.Make().String())
	}

	now := time.Now()
	token, err := auth.NewVerifier(*secret, func() time.Time { return now }).
		Sign(&model.Identity{UserID: id, Email: *email}, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		os.Exit(1)
	}

	out := output{UserID: id, Email: *email, Token: token}
	if *ttl > 0 {
		out.ExpiresAt = now.Add(*ttl).UTC().Format(time.RFC3339)
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Token)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func envOr(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
