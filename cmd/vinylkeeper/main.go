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
	"github.com/redis/go-redis/v9"
	myPostgresRepo "github.com/vinylkeeper/vinylkeeper-back/internal/adapters/db/postgres"
	myRedisRepo "github.com/vinylkeeper/vinylkeeper-back/internal/adapters/db/redis"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/mail"
	myGrpc "github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/grpc"
	myHTTP "github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http"
	"github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/guard"
	"github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/hasher"
	"github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/jwt"
	authsvc "github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/service"
	colsvc "github.com/vinylkeeper/vinylkeeper-back/internal/app/collection/service"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/notify"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/config"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/health"
	lg "github.com/vinylkeeper/vinylkeeper-back/internal/infra/log"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/migrate"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/server"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	zapLog := lg.Must(os.Getenv("LOG_LEVEL"))
	defer zapLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLog.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := migrate.Up(sqlDB); err != nil {
		zapLog.Fatal("run migrations", zap.Error(err))
	}

	redisCli := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisCli.Close()

	authority, err := jwt.NewFromConfig(cfg)
	if err != nil {
		zapLog.Fatal("failed to load token keys", zap.Error(err))
	}

	var mailer notify.Notifier = mail.NewLogNotifier(zapLog)
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPNotifier(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		zapLog.Warn("SMTP_HOST is empty, mails are only logged")
	}

	validate := validation.New()
	ownership := guard.New(authority)

	authService := authsvc.New(authsvc.Deps{
		Users:     myPostgresRepo.NewPostgresUserRepo(db),
		Epochs:    myRedisRepo.NewRedisTokenRepo(redisCli, cfg.RefreshTokenTTL),
		Tokens:    authority,
		Hasher:    hasher.New(cfg.PasswordPepper, hasher.DefaultParams),
		Mailer:    mailer,
		Outbox:    myRedisRepo.NewNotifyOutbox(redisCli, cfg.NotifyStream),
		Validator: validate,
		Logger:    zapLog.Named("auth"),
		Settings: authsvc.Settings{
			FrontendURL:   cfg.FrontendURL,
			AdminEmail:    cfg.AdminEmail,
			NotifyTimeout: cfg.NotifyTimeout,
		},
	})
	collectionService := colsvc.New(
		myPostgresRepo.NewPostgresCollectionRepo(db),
		ownership,
		validate,
		zapLog.Named("collections"),
	)
	checker := health.New(db, redisCli)

	consumer := myRedisRepo.NewNotifyConsumer(redisCli, mailer, zapLog.Named("notify"), myRedisRepo.ConsumerOptions{
		Stream:   cfg.NotifyStream,
		Group:    cfg.NotifyGroup,
		Consumer: cfg.NotifyConsumer,
		Timeout:  cfg.NotifyTimeout,
		Block:    5 * time.Second,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(rootCtx)

	gin.SetMode(gin.ReleaseMode)
	httpHandler := myHTTP.NewHandler(authService, collectionService, ownership, checker, myHTTP.CookieConfig{
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	}, zapLog)
	router := myHTTP.NewRouter(ctx, httpHandler, zapLog, myHTTP.RouterOptions{
		RateLimit: cfg.RateLimitHTTP,
		Burst:     cfg.RateLimitBurst,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcHandler := myGrpc.NewHandler(authService, collectionService, ownership, zapLog)

	g.Go(func() error {
		return server.StartGRPCServer(ctx, server.GRPCOptions{
			Address:   cfg.GRPCAddress,
			CertFile:  cfg.HTTPSCertFile,
			KeyFile:   cfg.HTTPSKeyFile,
			RateLimit: cfg.RateLimitGRPC,
			Burst:     cfg.RateLimitBurst,
			Services:  []string{myGrpc.AuthServiceName, myGrpc.CollectionsServiceName},
		}, func(s grpc.ServiceRegistrar) { myGrpc.Register(s, grpcHandler) }, checker, zapLog)
	})

	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddress))
		var err error
		if cfg.HTTPSCertFile != "" && cfg.HTTPSKeyFile != "" {
			err = srv.ListenAndServeTLS(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return consumer.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		zapLog.Info("shutdown signal received")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}
