// Command useradd provisions a credential record in the configured store.
//
//	useradd -username admin -password s3cret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kitstock-api/internal/config"
	"kitstock-api/internal/model"
	"kitstock-api/internal/repository"
	"kitstock-api/internal/service"
)

func main() {
	username := flag.String("username", "", "login name")
	password := flag.String("password", "", "plain-text password, or set KITSTOCK_PASSWORD")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *password == "" {
		*password = os.Getenv("KITSTOCK_PASSWORD")
	}
	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	store, err := repository.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to store")
	}
	defer store.Close()

	auth := service.NewAuthService(store.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	user, err := auth.CreateUser(ctx, *username, *password)
	if errors.Is(err, model.ErrDuplicate) {
		store.Close()
		log.Fatal().Str("username", *username).Msg("User already exists")
	}
	if err != nil {
		store.Close()
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("created user %s (%s)\n", user.Username, user.ID)
}
