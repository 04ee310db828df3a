package main

import (
	"context"
	"log"
	"os"

	gfs "cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"propertigo/internal/adapter/api"
	"propertigo/internal/adapter/api/handler"
	apimiddleware "propertigo/internal/adapter/api/middleware"
	"propertigo/internal/adapter/api/router"
	"propertigo/internal/adapter/repository"
	"propertigo/internal/infrastructure/firebase"
	fsinfra "propertigo/internal/infrastructure/firestore"
	"propertigo/internal/infrastructure/websocket"
	"propertigo/internal/usecase"
	"propertigo/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opt option.ClientOption

	// Service account from env (production) or file path (local dev).
	serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if serviceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
	} else {
		serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
		if serviceAccountPath == "" {
			serviceAccountPath = "./service-account.json"
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

	// The guard owns the only probe of the realtime backend. When the probe
	// fails the service still starts: chat operations degrade and clients
	// fall back to the REST conversation list.
	guard := fsinfra.NewGuard(func() (*gfs.Client, error) {
		return gfs.NewClient(ctx, cfg.FirebaseProject, opt)
	})
	if client := guard.Client(); client != nil {
		defer client.Close()
	}

	roomRepo := repository.NewFirestoreRoomRepository(guard.Client())
	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient, cfg.FirebaseAPIKey)

	chatUseCase := usecase.NewChatUseCase(roomRepo, guard)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)
	messageHandler := websocket.NewMessageHandler(wsManager, chatUseCase)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	roomHandler := handler.NewRoomHandler(chatUseCase)
	wsHandler := handler.NewWebSocketHandler(messageHandler, authMiddleware)
	healthHandler := handler.NewHealthHandler(guard)
	devTokenHandler := handler.NewDevTokenHandler(firebaseAuthClient)

	router.SetupHealthRouter(e, healthHandler)
	router.SetupRoomRouter(e, roomHandler, authMiddleware)
	router.SetupWebSocketRouter(e, wsHandler)
	router.SetupDevRouter(e, cfg.Environment, devTokenHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
