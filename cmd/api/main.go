package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"github.com/MrJamesThe3rd/billfold/internal/category"
	categoryStore "github.com/MrJamesThe3rd/billfold/internal/category/store"
	"github.com/MrJamesThe3rd/billfold/internal/config"
	"github.com/MrJamesThe3rd/billfold/internal/database"
	billfoldHttp "github.com/MrJamesThe3rd/billfold/internal/http"
	categoryHandler "github.com/MrJamesThe3rd/billfold/internal/http/category"
	importHandler "github.com/MrJamesThe3rd/billfold/internal/http/importing"
	txHandler "github.com/MrJamesThe3rd/billfold/internal/http/transaction"
	"github.com/MrJamesThe3rd/billfold/internal/importing"
	"github.com/MrJamesThe3rd/billfold/internal/ocr"
	"github.com/MrJamesThe3rd/billfold/internal/parser"
	"github.com/MrJamesThe3rd/billfold/internal/transaction"
	txStore "github.com/MrJamesThe3rd/billfold/internal/transaction/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ocrPool := ocr.NewPool(ocr.NewClient(cfg.OCR.URL, ocr.Options{
		Grayscale: cfg.OCR.Grayscale,
		MaxWidth:  cfg.OCR.MaxWidth,
	}), cfg.OCR.PoolSize)
	ocrPool.Warm(context.Background())
	defer ocrPool.Close()

	openaiCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	openaiCfg.BaseURL = cfg.OpenAI.BaseURL

	var (
		transactionService = transaction.NewService(txStore.New(db))
		categoryService    = category.NewService(categoryStore.New(db))
		extractor          = ocr.NewExtractor(ocrPool, cfg.OCR.Timeout)
		txParser           = parser.New(openai.NewClientWithConfig(openaiCfg), cfg.OpenAI.Model, cfg.OpenAI.Timeout)
		importService      = importing.NewService(
			extractor,
			txParser,
			categoryService,
			transactionService,
			cfg.Import.RecentWindow,
			cfg.Import.Timeout,
		)
	)

	var (
		transactionH = txHandler.NewHandler(transactionService)
		categoryH    = categoryHandler.NewHandler(categoryService)
		importH      = importHandler.NewHandler(importService, cfg.Import.MaxFileSize)
	)

	router := billfoldHttp.New(cfg.Auth.JWTSecret, transactionH, categoryH, importH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "app", cfg.App.Name, "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
