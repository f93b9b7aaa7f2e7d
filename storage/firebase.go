package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"log"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"tregorent/backend/config"
)

// ErrNoCredentials means no service account was configured.
var ErrNoCredentials = errors.New("no Firebase service account configured")

// NewFirebaseApp initializes the Firebase Admin SDK from the first service
// account source present: JSON, base64 encoded JSON, then raw JSON.
func NewFirebaseApp(ctx context.Context, cfg config.Firebase) (*firebase.App, error) {
	log.Println("Starting Firebase initialization...")
	log.Printf("Firebase env vars present: JSON=%v, Base64=%v, Raw=%v",
		cfg.ServiceAccountJSON != "", cfg.ServiceAccountBase64 != "", cfg.ServiceAccount != "")

	var credentials []byte
	switch {
	case cfg.ServiceAccountJSON != "":
		log.Println("Using JSON Firebase credentials from environment")
		credentials = []byte(cfg.ServiceAccountJSON)
	case cfg.ServiceAccountBase64 != "":
		log.Println("Using base64-encoded Firebase credentials from environment")
		decoded, err := base64.StdEncoding.DecodeString(cfg.ServiceAccountBase64)
		if err != nil {
			log.Printf("Error decoding base64 Firebase credentials: %v", err)
			return nil, err
		}
		credentials = decoded
	case cfg.ServiceAccount != "":
		log.Println("Using Firebase credentials from environment variable")
		credentials = []byte(cfg.ServiceAccount)
	default:
		return nil, ErrNoCredentials
	}

	fbConfig := &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}
	app, err := firebase.NewApp(ctx, fbConfig, option.WithCredentialsJSON(credentials))
	if err != nil {
		log.Printf("Error initializing Firebase app: %v", err)
		return nil, err
	}

	log.Println("Firebase Admin SDK initialized successfully")
	return app, nil
}
