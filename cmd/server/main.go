package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/carprice/internal/config"
	"github.com/stwalsh4118/carprice/internal/dataset"
	"github.com/stwalsh4118/carprice/internal/estimator"
	"github.com/stwalsh4118/carprice/internal/handlers"
	"github.com/stwalsh4118/carprice/internal/logger"
	"github.com/stwalsh4118/carprice/internal/metrics"
	"github.com/stwalsh4118/carprice/internal/models"
	"github.com/stwalsh4118/carprice/internal/repository"
	"github.com/stwalsh4118/carprice/internal/services"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Env).SetLevel(cfg.Server.LogLevel)
	log.Info("Starting car price API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// The table and the model are read once here and shared read-only
	// for the life of the process. Without either there is nothing to serve.
	loader := dataset.NewLoader(cfg.Data.DatasetPath, log.WithComponent("dataset"))
	ds, err := loader.Load()
	if err != nil {
		log.Fatal("Failed to load dataset", err, map[string]interface{}{
			"path": cfg.Data.DatasetPath,
		})
	}

	model, err := estimator.LoadArtifact(cfg.Data.ModelPath)
	if err != nil {
		log.Fatal("Failed to load model artifact", err, map[string]interface{}{
			"path": cfg.Data.ModelPath,
		})
	}
	log.Info("Model artifact loaded", map[string]interface{}{
		"path":     cfg.Data.ModelPath,
		"version":  model.Version,
		"features": model.Features(),
	})

	trainingMetrics := services.LoadTrainingMetrics(cfg.Data.MetricsPath, log)
	m := metrics.New()

	// Initialize repository and service layers
	listingRepo := repository.NewListingRepository(ds)
	listingService := services.NewListingService(listingRepo, log.WithComponent("listings"))
	predictionService := services.NewPredictionService(model, log.WithComponent("predictions"), m)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Log:            log,
		Metrics:        m,
		CORSOrigins:    cfg.CORS.Origins,
		MaxUploadBytes: cfg.Upload.MaxBytes(),
		Health: handlers.NewHealthHandler(cfg.Server.Env, handlers.ServiceMeta{
			DatasetRows:   ds.Len(),
			ModelVersion:  model.Version,
			ModelFeatures: model.Features(),
			ModelCategories: map[string][]string{
				models.ColCompany:  model.Categories(models.ColCompany),
				models.ColFuelType: model.Categories(models.ColFuelType),
			},
		},
			handlers.ReadinessCheck{Name: "dataset", Check: func(context.Context) error {
				_, err := loader.Load()
				return err
			}},
			handlers.ReadinessCheck{Name: "model", Check: func(context.Context) error {
				if model == nil {
					return errors.New("model artifact not loaded")
				}
				return nil
			}},
		),
		Listings:    handlers.NewListingHandler(listingService, cfg.Data.PreviewRows),
		Predictions: handlers.NewPredictionHandler(predictionService, cfg.Upload.MaxBytes()),
		Model:       handlers.NewModelHandler(trainingMetrics),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          stdlog.New(log.WithComponent("http").GetZerolog(), "", 0),
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
