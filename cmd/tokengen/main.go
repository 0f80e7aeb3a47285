package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/social-post-imgur/pkg/tokengenerator"
)

// tokengen mints a bearer token for the linkage API, for local testing.
func main() {
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "Secret key for signing the token (defaults to $JWT_SECRET)")
	issuer := flag.String("issuer", "social-post-imgur", "Issuer of the token")
	subject := flag.String("subject", "", "Local user ID (UUID)")
	expiry := flag.Duration("expiry", time.Hour, "Token expiry duration (e.g., 30m, 1h, 24h)")
	extraClaimsJSON := flag.String("claims", "{}", "Extra claims in JSON format")
	outputFormat := flag.String("format", "compact", "Output format: compact or full")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Error: -secret or JWT_SECRET is required")
		os.Exit(1)
	}
	userID, err := uuid.Parse(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -subject must be a UUID: %v\n", err)
		os.Exit(1)
	}

	var extraClaims map[string]interface{}
	if err := json.Unmarshal([]byte(*extraClaimsJSON), &extraClaims); err != nil {
		slog.Error("Failed to parse extra claims JSON", "err", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to parse extra claims JSON: %v\n", err)
		os.Exit(1)
	}

	tokenGen := tokengenerator.NewJwtTokenGenerator(*secret, *issuer, "")
	tokenStr, expiryTime, err := tokenGen.GenerateToken(userID, *expiry, extraClaims)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "full":
		fmt.Printf("Token: %s\nSubject: %s\nExpires: %s\n", tokenStr, userID, expiryTime.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
