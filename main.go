package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tregorent/backend/api"
	"tregorent/backend/config"
	"tregorent/backend/database"
	"tregorent/backend/events"
	"tregorent/backend/handlers"
	"tregorent/backend/security"
	"tregorent/backend/services"
	"tregorent/backend/session"
	"tregorent/backend/storage"
	"tregorent/backend/views"
)

var errDevPasswordRequired = errors.New("DEV_PASSWORD must be set to run the SQLite backend outside development")

// backend is the set of stores and the authenticator one deployment runs on.
type backend struct {
	docs  storage.DocumentStore
	blobs storage.BlobStore
	media handlers.MediaSource
	auth  session.Authenticator
	close func()
}

func main() {
	resetDB := flag.Bool("reset-db", false, "Delete the development database before starting")
	flag.Parse()

	cfg := config.Load()
	if cfg.IsDevelopment() {
		log.Println("Running in development environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, *resetDB)
	if err != nil {
		log.Fatal(err)
	}
	defer b.close()

	renderer, err := views.New()
	if err != nil {
		log.Fatal(err)
	}

	registry := session.NewRegistry(b.auth, session.NewProfileRoles(b.docs), cfg.SessionTTL)
	gateway := services.NewGateway(b.docs, b.blobs)
	drafts := services.NewDraftStore(cfg.DraftTTL)

	hub := events.NewHub()
	go hub.Run(ctx)

	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Printf("Warning: change events will not be published to RabbitMQ: %v", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	scheduler := services.NewScheduler()
	if err := scheduler.Every("@every 10m", "drafts", drafts); err != nil {
		log.Fatal(err)
	}
	if err := scheduler.Every("@every 1h", "sessions", registry); err != nil {
		log.Fatal(err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	h := handlers.New(handlers.Options{
		Catalog:       gateway,
		Drafts:        drafts,
		Sessions:      registry,
		Notifier:      events.NewBus(hub, publisher),
		Hub:           hub,
		Views:         renderer,
		Media:         b.media,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: !cfg.IsDevelopment(),
	})
	server := api.NewServer(h, registry, cfg.AllowedOrigins, cfg.IsDevelopment())
	server.TrustForwardedHops(cfg.TrustedProxyHops)
	defer server.Close()

	srv := &http.Server{
		Handler:      server.Handler(),
		Addr:         ":" + cfg.Port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s (%s backend)...", cfg.Port, cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// openBackend opens the configured backend. A Firebase backend that fails
// to start falls back to SQLite only in development; elsewhere the server
// keeps running and every backend call fails with storage.ErrUnavailable.
func openBackend(ctx context.Context, cfg *config.Config, resetDB bool) (*backend, error) {
	if cfg.Backend == config.BackendFirebase {
		b, err := openFirebase(ctx, cfg)
		if err == nil {
			return b, nil
		}
		log.Printf("Warning: Failed to initialize Firebase: %v", err)
		if !cfg.IsDevelopment() {
			log.Println("Warning: backend calls will fail until Firebase is configured")
			unavailable := storage.Unavailable{Cause: err}
			return &backend{
				docs:  unavailable,
				blobs: unavailable,
				auth:  session.UnavailableAuthenticator{Cause: err},
				close: func() {},
			}, nil
		}
		log.Println("Falling back to the local SQLite backend")
	}

	if resetDB && cfg.SQLitePath != ":memory:" {
		log.Printf("Resetting development database %s", cfg.SQLitePath)
		os.Remove(cfg.SQLitePath)
	}
	return openSQLite(cfg)
}

func openFirebase(ctx context.Context, cfg *config.Config) (*backend, error) {
	app, err := storage.NewFirebaseApp(ctx, cfg.Firebase)
	if err != nil {
		return nil, err
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}

	storageClient, err := app.Storage(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, err
	}
	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		firestoreClient.Close()
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, err
	}
	authenticator, err := session.NewFirebaseAuthenticator(ctx, authClient, cfg.Firebase.APIKey, cfg.SessionTTL)
	if err != nil {
		firestoreClient.Close()
		return nil, err
	}

	docs := storage.NewFirestoreStore(firestoreClient)
	return &backend{
		docs:  docs,
		blobs: storage.NewCloudStorageBlobs(bucket, cfg.Firebase.StorageBucket),
		auth:  authenticator,
		close: func() { docs.Close() },
	}, nil
}

func openSQLite(cfg *config.Config) (*backend, error) {
	if cfg.DevPassword == "" && !cfg.IsDevelopment() {
		return nil, errDevPasswordRequired
	}
	if err := database.InitDB(cfg.SQLitePath); err != nil {
		return nil, err
	}

	if cfg.EncryptionKey == "" {
		log.Println("Warning: ENCRYPTION_KEY not set, sessions will not survive a restart")
	}
	sealer, err := security.NewSealer(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if cfg.DevPassword == "" {
		log.Println("Warning: DEV_PASSWORD not set, any password is accepted. This is NOT secure for production!")
	}

	blobs := storage.NewSQLiteBlobs(database.DB, cfg.PublicBaseURL)
	return &backend{
		docs:  storage.NewSQLiteStore(database.DB),
		blobs: blobs,
		media: blobs,
		auth:  session.NewDevAuthenticator(sealer, cfg.DevPassword, cfg.SessionTTL),
		close: func() { database.DB.Close() },
	}, nil
}
