// Command devtoken mints an HS256 access token for local testing against a
// server running with AUTH_VERIFY_MODE=hs256.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/iliyamo/tapin-reveal/internal/utils"
)

func main() {
	_ = godotenv.Load()

	sub := flag.String("sub", "", "user id (UUID); a random one when empty")
	role := flag.String("role", "authenticated", "role claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	id := *sub
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		log.Fatalf("invalid -sub: %v", err)
	}

	tok, err := utils.NewAccessToken(secret, id, *role, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "sub=%s expires=%s\n", id, tok.Exp.Format(time.RFC3339))
	fmt.Println(tok.Token)
}
