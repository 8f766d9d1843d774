// Command bootstrap-owner seeds the single owner account. Run once
// against a fresh database; every other account is created through
// the API by the owner.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mymail/mymail/internal/auth"
	"github.com/mymail/mymail/internal/model"
	"github.com/mymail/mymail/internal/repository"
)

type output struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		localPart   = flag.String("email", "admin", "Owner email local part (domain is appended)")
		domain      = flag.String("domain", "mymail.local", "Organizational email domain")
		firstName   = flag.String("first-name", "System", "Owner first name")
		lastName    = flag.String("last-name", "Administrator", "Owner last name")
		password    = flag.String("password", "", "Owner password (generated when empty)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if strings.Contains(*localPart, "@") {
		fmt.Fprintln(os.Stderr, "email must be a bare local part; the domain is appended")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "run migrations:", err)
		os.Exit(1)
	}

	generated := ""
	secret := *password
	if secret == "" {
		secret = ulid.Make().String()
		generated = secret
	}

	hash, err := auth.HashPassword(secret)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash password:", err)
		os.Exit(1)
	}

	owner := &model.User{
		Email:         *localPart + "@" + *domain,
		FirstName:     *firstName,
		LastName:      *lastName,
		Role:          model.RoleOwner,
		NeverLoggedIn: true,
		PasswordHash:  hash,
	}

	if err := repo.CreateUser(ctx, owner); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			fmt.Fprintln(os.Stderr, "owner already exists:", owner.Email)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "create owner:", err)
		os.Exit(1)
	}

	out := output{
		UserID:   owner.ID,
		Email:    owner.Email,
		Role:     string(owner.Role),
		Password: generated,
	}

	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintln(os.Stderr, "encode output:", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("Owner account created")
	fmt.Println("  ID:    ", out.UserID)
	fmt.Println("  Email: ", out.Email)
	if generated != "" {
		fmt.Println("  Password:", generated)
		fmt.Println()
		fmt.Println("Store the password now; it is not retrievable later.")
	}
}
