package firebase_client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
	"google.golang.org/api/option"
)

var ErrNotConfigured = errors.New("firebase service account is not configured")

// Connect initialises a firebase app from the base64 encoded service account
func Connect(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	if cfg.ServiceAccount == "" {
		return nil, ErrNotConfigured
	}

	decodedKey, err := base64.StdEncoding.DecodeString(cfg.ServiceAccount)
	if err != nil {
		return nil, fmt.Errorf("decoding firebase service account: %w", err)
	}

	opts := []option.ClientOption{option.WithCredentialsJSON(decodedKey)}

	var appConfig *firebase.Config
	if cfg.DatabaseURL != "" {
		appConfig = &firebase.Config{DatabaseURL: cfg.DatabaseURL}
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("database", cfg.DatabaseURL).Msg("Firebase app initialised")

	return app, nil
}
