package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"helphand/internal/adapter/api"
	"helphand/internal/adapter/api/handler"
	apimiddleware "helphand/internal/adapter/api/middleware"
	"helphand/internal/adapter/api/router"
	"helphand/internal/adapter/repository"
	"helphand/internal/adapter/repository/memory"
	domainrepo "helphand/internal/domain/repository"
	"helphand/internal/domain/service"
	"helphand/internal/infrastructure/firebase"
	"helphand/internal/infrastructure/pubsub"
	"helphand/internal/infrastructure/ratelimit"
	"helphand/internal/infrastructure/storage"
	"helphand/internal/infrastructure/websocket"
	"helphand/internal/usecase"
	"helphand/pkg/config"
	"helphand/pkg/retry"
)

type repositories struct {
	store    domainrepo.Store
	users    domainrepo.UserRepository
	requests domainrepo.RequestRepository
	chats    domainrepo.ChatRepository
	messages domainrepo.MessageRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opt option.ClientOption

	serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if serviceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
	} else {
		serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
		if serviceAccountPath == "" {
			serviceAccountPath = "./firebase-service-account.json"
		}

		if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
		}

		log.Printf("Using Firebase service account from file: %s", serviceAccountPath)
		opt = option.WithCredentialsFile(serviceAccountPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}
	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient, cfg.FirebaseApiKey)

	var repos repositories
	switch cfg.StoreBackend {
	case "memory":
		log.Printf("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		repos = repositories{
			store:    store,
			users:    memory.NewUserRepository(store),
			requests: memory.NewRequestRepository(store),
			chats:    memory.NewChatRepository(store),
			messages: memory.NewMessageRepository(store),
		}
	case "firestore":
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		repos = repositories{
			store:    repository.NewFirestoreStore(firestoreClient),
			users:    repository.NewFirestoreUserRepository(firestoreClient),
			requests: repository.NewFirestoreRequestRepository(firestoreClient),
			chats:    repository.NewFirestoreChatRepository(firestoreClient),
			messages: repository.NewFirestoreMessageRepository(firestoreClient),
		}
	default:
		log.Fatalf("Unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	imageHost, closeImageHost := newImageHost(ctx, cfg, opt)
	defer closeImageHost()

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	var notifier usecase.Notifier = wsManager
	if cfg.RedisURL != "" {
		bus, err := pubsub.NewRedisBus(cfg.RedisURL, wsManager)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer bus.Close()

		go func() {
			if err := bus.Run(ctx); err != nil {
				log.Printf("Redis event bus stopped: %v", err)
			}
		}()
		notifier = bus
		log.Printf("User events fan out through Redis")
	}

	rateLimiter := ratelimit.NewRateLimiter(ratelimit.DefaultRules())
	rateLimiter.StartCleanupRoutine(ctx)

	policy := retry.NewPolicy(cfg.RetryAttempts, time.Duration(cfg.RetryInitialBackoffMs)*time.Millisecond)

	userUseCase := usecase.NewUserUseCase(repos.users)
	requestUseCase := usecase.NewRequestUseCase(repos.requests, repos.users, policy)
	unreadUseCase := usecase.NewUnreadUseCase(repos.store, repos.chats, notifier, policy)
	chatUseCase := usecase.NewChatUseCase(
		repos.store,
		repos.chats,
		repos.messages,
		repos.users,
		unreadUseCase,
		notifier,
		rateLimiter,
		policy,
	)
	messageUseCase := usecase.NewMessageUseCase(
		repos.store,
		repos.chats,
		repos.messages,
		imageHost,
		unreadUseCase,
		rateLimiter,
		policy,
	)
	subscriptionUseCase := usecase.NewSubscriptionUseCase(repos.chats, repos.messages, messageUseCase)
	wsManager.Attach(messageUseCase, subscriptionUseCase)

	handlers := handler.Setup(
		userUseCase,
		requestUseCase,
		chatUseCase,
		messageUseCase,
		unreadUseCase,
		wsManager,
		firebaseAuthClient,
		cfg.StoreBackend,
	)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(firebaseAuthClient)
	router.Setup(e, handlers, authMiddleware, rateLimiter, cfg.Environment)

	go func() {
		log.Printf("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// newImageHost builds the uploader selected by IMAGE_HOST and its cleanup.
func newImageHost(ctx context.Context, cfg *config.Config, opt option.ClientOption) (usecase.ImageHost, func()) {
	switch cfg.ImageHost {
	case "imgbb":
		if cfg.ImgbbAPIKey == "" {
			log.Printf("IMGBB_API_KEY is not set; image uploads will fail")
		}
		return service.NewImgbbService(cfg.ImgbbAPIKey, cfg.ImgbbEndpoint), func() {}

	case "gcs":
		client, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opt)
		if err != nil {
			log.Fatalf("Failed to initialize Cloud Storage: %v", err)
		}
		return client, func() { client.Close() }

	case "minio":
		client, err := storage.NewMinioClient(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("Failed to initialize MinIO: %v", err)
		}
		return client, func() {}

	default:
		log.Fatalf("Unknown IMAGE_HOST %q", cfg.ImageHost)
		return nil, func() {}
	}
}
