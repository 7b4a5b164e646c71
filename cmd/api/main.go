package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"soulcircle/internal/adapter/api"
	"soulcircle/internal/adapter/api/handler"
	apimiddleware "soulcircle/internal/adapter/api/middleware"
	"soulcircle/internal/adapter/api/router"
	"soulcircle/internal/adapter/repository"
	"soulcircle/internal/adapter/repository/memory"
	"soulcircle/internal/adapter/repository/redis"
	domainrepo "soulcircle/internal/domain/repository"
	"soulcircle/internal/infrastructure/firebase"
	"soulcircle/internal/infrastructure/metrics"
	"soulcircle/internal/infrastructure/ratelimit"
	"soulcircle/internal/infrastructure/storage"
	"soulcircle/internal/infrastructure/websocket"
	"soulcircle/internal/usecase"
	"soulcircle/pkg/config"
	"soulcircle/pkg/logger"
)

// repositories is the set of stores the usecases run on.
type repositories struct {
	groups        domainrepo.GroupRepository
	messages      domainrepo.MessageRepository
	conversations domainrepo.ConversationRepository
	users         domainrepo.UserRepository
	feelNotes     domainrepo.FeelNoteRepository
	moods         domainrepo.MoodRepository
	presence      domainrepo.PresenceRepository
	typing        domainrepo.TypingRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "soulcircle"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		verifier    firebase.TokenVerifier
		tokenIssuer handler.TokenIssuer
		avatars     usecase.AvatarStore
		repos       repositories
	)

	memStore := memory.NewStore()
	repos = memoryRepositories(memStore)

	opt, hasCredentials := credentials(cfg)
	if hasCredentials {
		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("Failed to initialize Firebase")
		}

		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("Failed to initialize Firebase Auth")
		}
		firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient)
		verifier = firebaseAuthClient
		tokenIssuer = func(ctx context.Context, uid, _ string) (string, error) {
			return firebaseAuthClient.GenerateToken(ctx, uid)
		}

		if cfg.StorageBucket != "" {
			storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opt)
			if err != nil {
				logger.L().Fatal().Err(err).Msg("Failed to initialize Cloud Storage")
			}
			defer storageClient.Close()
			avatars = storageClient
		}
	} else {
		if !cfg.IsDevelopment() {
			logger.L().Fatal().Msg("Firebase credentials are required outside development")
		}
		logger.Warn("No Firebase credentials: accepting development tokens")
		verifier = firebase.DevTokenVerifier{}
		tokenIssuer = func(_ context.Context, uid, name string) (string, error) {
			return firebase.DevToken(uid, name), nil
		}
	}

	if cfg.StoreBackend == config.BackendFirestore {
		if !hasCredentials {
			logger.L().Fatal().Msg("STORE_BACKEND=firestore needs Firebase credentials")
		}
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("Failed to create Firestore client")
		}
		defer firestoreClient.Close()
		firestoreRepositories(firestoreClient, &repos)
	}

	if cfg.PresenceBackend == config.BackendRedis {
		redisClient, err := redis.NewClient(redis.Config{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.L().Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		repos.presence = redis.NewPresenceRepository(redisClient)
		repos.typing = redis.NewTypingRepository(redisClient)
	}
	logger.Info("Store backend: %s, presence backend: %s", cfg.StoreBackend, cfg.PresenceBackend)

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine(ctx.Done())

	groupUseCase := usecase.NewGroupUseCase(repos.groups, rateLimiter)
	messageUseCase := usecase.NewMessageUseCase(repos.messages, repos.groups, rateLimiter, cfg.MessageWindow)
	dmUseCase := usecase.NewDMUseCase(repos.conversations, repos.messages, repos.users, rateLimiter, cfg.MessageWindow)
	presenceUseCase := usecase.NewPresenceUseCase(repos.presence)
	typingUseCase := usecase.NewTypingUseCase(repos.typing, repos.groups, rateLimiter, cfg.TypingTTL)
	userUseCase := usecase.NewUserUseCase(repos.users, avatars)
	feelNoteUseCase := usecase.NewFeelNoteUseCase(repos.feelNotes, repos.users)
	moodUseCase := usecase.NewMoodUseCase(repos.moods)

	if cfg.SeedDefaultCircles {
		if _, err := groupUseCase.SeedDefaultCircles(ctx); err != nil {
			logger.Error("Failed to seed default circles: %v", err)
		}
	}

	wsManager := websocket.NewManager(websocket.Services{
		Groups:   groupUseCase,
		Messages: messageUseCase,
		DMs:      dmUseCase,
		Presence: presenceUseCase,
		Typing:   typingUseCase,
	})
	wsManager.Start(ctx)
	presenceUseCase.SetDisconnectHooks(wsManager)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()

	e.Use(middleware.RequestID())
	e.Use(apimiddleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(cfg.AllowedOrigins, ","),
	}))
	e.Use(metrics.HTTPMetricsMiddleware())
	e.Use(apimiddleware.IPRateLimit(cfg.RequestsPerSecondPerIP))

	handlers := router.Handlers{
		Group:     handler.NewGroupHandler(groupUseCase),
		Message:   handler.NewMessageHandler(messageUseCase),
		Presence:  handler.NewPresenceHandler(presenceUseCase, typingUseCase),
		DM:        handler.NewDMHandler(dmUseCase),
		User:      handler.NewUserHandler(userUseCase),
		Journal:   handler.NewJournalHandler(feelNoteUseCase, moodUseCase),
		Health:    handler.NewHealthHandler(cfg.StoreBackend),
		WebSocket: handler.NewWebSocketHandler(wsManager, cfg.AllowedOrigins),
	}
	if cfg.IsDevelopment() {
		handlers.DevToken = handler.NewDevTokenHandler(tokenIssuer)
	}
	router.Setup(e, handlers, apimiddleware.NewAuthMiddleware(verifier, userUseCase))

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("Server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

// credentials picks the service account from FIREBASE_SERVICE_ACCOUNT_JSON,
// then FIREBASE_SERVICE_ACCOUNT_PATH.
func credentials(cfg *config.Config) (option.ClientOption, bool) {
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)), true
	}
	if cfg.ServiceAccountPath != "" {
		if _, err := os.Stat(cfg.ServiceAccountPath); err != nil {
			logger.L().Fatal().Err(err).Str("path", cfg.ServiceAccountPath).Msg("Service account file is not readable")
		}
		logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		return option.WithCredentialsFile(cfg.ServiceAccountPath), true
	}
	return nil, false
}

func memoryRepositories(s *memory.Store) repositories {
	return repositories{
		groups:        memory.NewGroupRepository(s),
		messages:      memory.NewMessageRepository(s),
		conversations: memory.NewConversationRepository(s),
		users:         memory.NewUserRepository(s),
		feelNotes:     memory.NewFeelNoteRepository(s),
		moods:         memory.NewMoodRepository(s),
		presence:      memory.NewPresenceRepository(s),
		typing:        memory.NewTypingRepository(s),
	}
}

// firestoreRepositories swaps the document stores onto Firestore. Presence
// and typing stay on their own backend.
func firestoreRepositories(client *firestore.Client, repos *repositories) {
	repos.groups = repository.NewFirestoreGroupRepository(client)
	repos.messages = repository.NewFirestoreMessageRepository(client)
	repos.conversations = repository.NewFirestoreConversationRepository(client)
	repos.users = repository.NewFirestoreUserRepository(client)
	repos.feelNotes = repository.NewFirestoreFeelNoteRepository(client)
	repos.moods = repository.NewFirestoreMoodRepository(client)
}
