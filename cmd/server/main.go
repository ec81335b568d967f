package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/rankedpoll/api/internal/adapters/broadcast"
	"github.com/rankedpoll/api/internal/adapters/handler/http"
	"github.com/rankedpoll/api/internal/adapters/repository/postgres"
	"github.com/rankedpoll/api/internal/core/services"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found")
	}

	db, err := sql.Open("postgres", dbConnString())
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.WithError(err).Fatal("failed to reach database")
	}

	hub := broadcast.NewHub(logger)
	defer hub.Close()

	pollRepo := postgres.NewPollRepository(db)
	ballotRepo := postgres.NewBallotRepository(db)
	locks := services.NewPollLocks()

	pollService := services.NewPollService(pollRepo, ballotRepo, hub, locks)
	voteService := services.NewVoteService(pollRepo, ballotRepo, hub, locks)

	handler := http.NewHandler(
		http.NewPollHandler(pollService, logger),
		http.NewVoteHandler(voteService, logger),
		http.NewLiveHandler(pollService, hub, logger),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &stdhttp.Server{Addr: "0.0.0.0:" + port, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("shutdown failed")
	}
}

func dbConnString() string {
	dbName, user, password, host, port := dbConfig()
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbName)
}

func dbConfig() (dbName string, user string, password string, host string, port string) {
	dbName = os.Getenv("POSTGRES_DB")
	user = os.Getenv("POSTGRES_USER")
	password = os.Getenv("POSTGRES_PASSWORD")
	host = os.Getenv("POSTGRES_HOST")
	port = os.Getenv("POSTGRES_PORT")
	return
}
