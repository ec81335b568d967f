package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rankedpoll/api/internal/adapters/broadcast"
	apihttp "github.com/rankedpoll/api/internal/adapters/handler/http"
	pgrepo "github.com/rankedpoll/api/internal/adapters/repository/postgres"
	"github.com/rankedpoll/api/internal/core/domain"
	"github.com/rankedpoll/api/internal/core/services"
)

type testApp struct {
	DB     *sql.DB
	Server *httptest.Server
	Client *http.Client
	Hub    *broadcast.Hub

	container testcontainers.Container
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		_, err = db.Exec(string(content))
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}

	return nil
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	container, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, applyMigrations(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hub := broadcast.NewHub(logger)

	pollRepo := pgrepo.NewPollRepository(db)
	ballotRepo := pgrepo.NewBallotRepository(db)
	locks := services.NewPollLocks()

	pollService := services.NewPollService(pollRepo, ballotRepo, hub, locks)
	voteService := services.NewVoteService(pollRepo, ballotRepo, hub, locks)

	handler := apihttp.NewHandler(
		apihttp.NewPollHandler(pollService, logger),
		apihttp.NewVoteHandler(voteService, logger),
		apihttp.NewLiveHandler(pollService, hub, logger),
	)

	server := httptest.NewServer(handler)

	return &testApp{
		DB:        db,
		Server:    server,
		Client:    server.Client(),
		Hub:       hub,
		container: container,
	}
}

func (a *testApp) Teardown(t *testing.T) {
	t.Helper()
	a.Server.Close()
	a.Hub.Close()
	a.DB.Close()
	require.NoError(t, a.container.Terminate(context.Background()))
}

func createTestPoll(t *testing.T, app *testApp, creatorToken string, options ...string) *domain.Poll {
	t.Helper()

	payload := map[string]any{
		"title":         "Team offsite location",
		"options":       options,
		"creator_token": creatorToken,
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := app.Client.Post(app.Server.URL+"/api/polls", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var poll domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&poll))
	return &poll
}

func submitVote(t *testing.T, app *testApp, pollID string, ranking []string, voterToken string) *http.Response {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"ranking":     ranking,
		"voter_token": voterToken,
	})
	require.NoError(t, err)

	resp, err := app.Client.Post(
		fmt.Sprintf("%s/api/polls/%s/vote", app.Server.URL, pollID),
		"application/json",
		bytes.NewReader(body),
	)
	require.NoError(t, err)
	return resp
}
