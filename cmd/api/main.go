package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/joho/godotenv"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/zodiai/backend/internal/config"
	"github.com/zodiai/backend/internal/handler"
	"github.com/zodiai/backend/internal/logsink"
	"github.com/zodiai/backend/internal/service/ai"
	"github.com/zodiai/backend/internal/service/astrology"
	chatservice "github.com/zodiai/backend/internal/service/chat"
	"github.com/zodiai/backend/internal/service/geo"
	"github.com/zodiai/backend/internal/service/moderation"
	"github.com/zodiai/backend/internal/service/search"
	"github.com/zodiai/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	defer logger.Sync()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warn("failed to load .env file, continuing with system environment only", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	store, err := storage.NewStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Fatal("failed to open session store", zap.Error(err))
	}
	defer store.Close()

	fanout := logsink.NewFanout(logger, buildSinks(ctx, cfg, logger)...)
	logger.Info("log fan-out configured", zap.Int("sinks", fanout.Sinks()))

	kb, tools := buildTools(cfg, logger)

	var turns *chatservice.Service
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI, tools, logger)
		if err != nil {
			logger.Warn("failed to initialize AI service, continuing without chat", zap.Error(err))
		} else {
			moderator := moderation.New(cfg.AI.BaseURL, cfg.AI.APIKey, logger)
			turns = chatservice.NewService(moderator, aiSvc, store, fanout, logger)
			logger.Info("AI service initialized")
		}
	} else {
		logger.Warn("model credentials not configured, chat endpoint disabled")
	}

	router := handler.NewRouter(turns, store, kb, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("APP_ENV") == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// buildSinks constructs every secondary sink whose credentials are present.
// A missing credential set degrades that sink to a warning, never a failure.
func buildSinks(ctx context.Context, cfg *config.Config, logger *zap.Logger) []logsink.Sink {
	var sinks []logsink.Sink

	csvSink, err := logsink.NewCSVSink(cfg.Storage.DataDir)
	if err != nil {
		logger.Warn("csv sink unavailable", zap.Error(err))
	} else {
		sinks = append(sinks, csvSink)
	}

	if cfg.Sheets.Enabled() {
		sheetsSink, err := logsink.NewSheetsSink(ctx, cfg.Sheets.SheetID, cfg.Sheets.ClientEmail, cfg.Sheets.PrivateKey)
		if err != nil {
			logger.Warn("sheets sink unavailable", zap.Error(err))
		} else {
			sinks = append(sinks, sheetsSink)
		}
	} else {
		logger.Warn("Google Sheets credentials missing, skipping sheet mirror")
	}

	if cfg.Redis.Enabled() {
		redisSink, err := logsink.NewRedisSink(cfg.Redis.URL, cfg.Redis.ListKey)
		if err != nil {
			logger.Warn("redis sink unavailable", zap.Error(err))
		} else {
			sinks = append(sinks, redisSink)
		}
	} else {
		logger.Warn("Redis connection string missing, skipping key-value mirror")
	}

	return sinks
}

// buildTools assembles the tool set offered to the model. The astrology tool
// is always registered; its safety wrapper reports missing credentials to
// the model as an unavailable-service payload.
func buildTools(cfg *config.Config, logger *zap.Logger) (*search.KnowledgeBase, []tool.BaseTool) {
	var tools []tool.BaseTool

	resolver := geo.New(cfg.Geo.BaseURL, cfg.Geo.UserAgent, logger)
	astroClient := astrology.NewClient(cfg.Astrology.UserID, cfg.Astrology.APIKey, cfg.Astrology.BaseURL)
	astroTool, err := astrology.NewTool(astroClient, resolver, logger)
	if err != nil {
		logger.Warn("astrology tool unavailable", zap.Error(err))
	} else {
		tools = append(tools, astroTool)
	}

	var kb *search.KnowledgeBase
	if cfg.AI.Enabled() {
		embed := chromem.NewEmbeddingFuncOpenAI(cfg.AI.APIKey, chromem.EmbeddingModelOpenAI3Small)
		kb, err = search.NewKnowledgeBase(cfg.Storage.DataDir, embed, logger)
		if err != nil {
			logger.Warn("knowledge base unavailable", zap.Error(err))
			kb = nil
		} else if kbTool, err := kb.Tool(); err != nil {
			logger.Warn("vector search tool unavailable", zap.Error(err))
		} else {
			tools = append(tools, kbTool)
		}
	}

	if cfg.Search.Enabled() {
		searcher := search.NewWebSearcher(cfg.Search.BaseURL, cfg.Search.APIKey, logger)
		webTool, err := searcher.Tool()
		if err != nil {
			logger.Warn("web search tool unavailable", zap.Error(err))
		} else {
			tools = append(tools, webTool)
		}
	} else {
		logger.Warn("search API key missing, web search tool disabled")
	}

	return kb, tools
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("ZodiAI backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
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
