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

	"github.com/cloudwego/eino/components/embedding"
	"github.com/joho/godotenv"

	"github.com/yeehaa123/personal-brain-sub006/internal/analysis/coverage"
	"github.com/yeehaa123/personal-brain-sub006/internal/analysis/relevance"
	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	"github.com/yeehaa123/personal-brain-sub006/internal/config"
	"github.com/yeehaa123/personal-brain-sub006/internal/handler"
	"github.com/yeehaa123/personal-brain-sub006/internal/mediator"
	"github.com/yeehaa123/personal-brain-sub006/internal/memory"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
	noteModel "github.com/yeehaa123/personal-brain-sub006/internal/model/note"
	profileModel "github.com/yeehaa123/personal-brain-sub006/internal/model/profile"
	"github.com/yeehaa123/personal-brain-sub006/internal/service/ai"
	queryService "github.com/yeehaa123/personal-brain-sub006/internal/service/query"
	"github.com/yeehaa123/personal-brain-sub006/internal/storage/sqlite"
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

	// Initialize AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - check the Ark model environment variables")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	// Conversation storage: SQLite when a path is configured, in-memory otherwise.
	var conversationStore conversation.Store
	if cfg.Brain.ConversationDB != "" {
		sqliteStore, err := sqlite.Open(cfg.Brain.ConversationDB)
		if err != nil {
			log.Fatalf("failed to open conversation database: %v", err)
		}
		defer sqliteStore.Close()
		conversationStore = sqliteStore
		log.Printf("conversation store backed by SQLite at %s", cfg.Brain.ConversationDB)
	} else {
		conversationStore = conversation.NewMemoryStore()
		log.Println("conversation store kept in memory")
	}

	var embedder embedding.Embedder = &ai.HashEmbedder{}

	var summarizer memory.Summarizer = memory.HeuristicSummarizer{}
	if aiService != nil {
		summarizer = memory.SummarizerFunc(aiService.SummarizeTurns)
	}

	bus := mediator.New(cfg.Brain.MediatorTimeout)
	manager := brain.NewManager(bus, brain.Deps{
		NoteStore:         noteModel.NewMemoryStore(noteModel.Seed()),
		ProfileStore:      profileModel.NewMemoryStore(nil),
		ConversationStore: conversationStore,
		Provider:          &brain.StaticProvider{},
		Embedder:          embedder,
		Summarizer:        summarizer,
		MemoryConfig:      memory.Config{ActiveCapacity: cfg.Brain.ActiveCapacity},
	}, cfg.Brain.ExternalEnabled)
	if !manager.Ready() {
		if _, err := manager.Notes(); err != nil {
			log.Fatalf("failed to initialize brain contexts: %v", err)
		}
	}
	manager.InitializeContextLinks()

	analyzer := relevance.NewAnalyzer(embedder, cfg.Brain.ProfileThreshold)
	engine := coverage.NewEngine(cfg.Brain.ExternalThreshold)

	var processor *queryService.Processor
	if aiService != nil {
		processor = queryService.NewProcessor(manager, analyzer, engine, aiService, queryService.Config{
			HistoryMaxLength:   cfg.Brain.HistoryMaxLength,
			RecentNoteFallback: cfg.Brain.RecentNoteFallback,
		})
	} else {
		log.Println("query pipeline disabled, AI service unavailable")
	}

	router := handler.NewRouter(manager, processor)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("personal brain backend listening on %s", addr)
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
