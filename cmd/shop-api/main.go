// Command shop-api serves the storefront and admin API.
//
// @title Annoor Shop API
// @version 1.0
// @description Catalog, orders and identities of the Annoor storefront.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MikeMC777/annoor-shop/internal/auth"
	"github.com/MikeMC777/annoor-shop/internal/config"
	"github.com/MikeMC777/annoor-shop/internal/httpx"
	"github.com/MikeMC777/annoor-shop/internal/logger"
	"github.com/MikeMC777/annoor-shop/internal/metrics"
	"github.com/MikeMC777/annoor-shop/internal/order"
	"github.com/MikeMC777/annoor-shop/internal/product"
	"github.com/MikeMC777/annoor-shop/internal/upload"
	"github.com/MikeMC777/annoor-shop/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Stderr, "error", "json").Fatal("failed to load config", "error", err)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to open store", "driver", cfg.Database.Driver, "error", err)
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()

	tokens, err := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		log.Fatal("failed to set up tokens", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(reg)

	images, assetsDir, err := imageStorage(ctx, cfg)
	if err != nil {
		log.Fatal("failed to set up image storage", "driver", cfg.Upload.Driver, "error", err)
	}

	limiter := httpx.NewRateLimiter(log, cfg.RateLimit.TokenPerMin, cfg.RateLimit.Burst, 5*time.Minute)
	defer limiter.Stop()

	users := user.NewService(st.users, tokens)
	products := product.NewService(st.products)
	d := &deps{
		log:          log,
		users:        users,
		products:     products,
		orders:       order.NewService(st.orders, products, log),
		gate:         auth.NewGate(tokens, auth.NewAuthorizer(st.users)),
		images:       upload.NewIngestor(images, cfg.Upload.MaxBytes, m.RecordUploadRejected),
		metrics:      m,
		gatherer:     reg,
		tokenLimiter: limiter,
		ping:         st.ping,
		assetsDir:    assetsDir,
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "uid", "_id", "id", "category"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           corsHandler(newRouter(d)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", srv.Addr, "driver", cfg.Database.Driver, "upload", cfg.Upload.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// imageStorage returns the configured image store and, for disk storage,
// the directory to serve under /assets.
func imageStorage(ctx context.Context, cfg *config.Config) (upload.Storage, string, error) {
	if cfg.Upload.Driver == config.UploadMinio {
		client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, "", err
		}
		s, err := upload.NewMinio(ctx, client, cfg.Minio.Bucket, cfg.Minio.PublicURL)
		return s, "", err
	}
	disk, err := upload.NewDisk(cfg.Upload.Dir, cfg.AssetsURL())
	if err != nil {
		return nil, "", err
	}
	return disk, disk.Dir(), nil
}
