package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eargai/earg-backend/internal/config"
	"github.com/eargai/earg-backend/internal/handler"
	"github.com/eargai/earg-backend/internal/repository"
	"github.com/eargai/earg-backend/internal/service/ai"
	authservice "github.com/eargai/earg-backend/internal/service/auth"
	"github.com/eargai/earg-backend/internal/service/search"
	"github.com/eargai/earg-backend/internal/service/turn"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := repository.Open(ctx, cfg.DB.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepository(db)
	passcodes := repository.NewPasscodeRepository(db)
	chats := repository.NewChatRepository(db)
	messages := repository.NewMessageRepository(db)

	authSvc := authservice.NewService(users, passcodes, nil, cfg.Auth)

	var orchestrator *turn.Orchestrator
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Fatalf("failed to initialize generation service: %v", err)
		}

		searchClient := search.NewClient(cfg.Search)
		if cfg.Search.APIKey == "" {
			log.Println("retrieval credential not configured, augmentation will degrade to no-op")
		}

		policy := ai.PolicyByName(cfg.Chat.Policy)
		log.Printf("augmentation policy: %s", policy.Name())

		orchestrator = turn.NewOrchestrator(aiSvc, searchClient, policy, messages, turn.Options{
			WindowSize:        cfg.Chat.WindowSize,
			MaxResults:        cfg.Search.MaxResults,
			BufferedStreaming: !cfg.AI.StreamResponse,
		})
	} else {
		log.Println("generation credentials not configured, turn endpoints disabled")
	}

	router := handler.NewRouter(handler.Deps{
		AuthService:   authSvc,
		Chats:         chats,
		Orchestrator:  orchestrator,
		SessionSecret: cfg.Auth.SessionSecret,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("EARG backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
