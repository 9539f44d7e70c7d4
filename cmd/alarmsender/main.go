package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/trackaship/alarmsender/internal/config"
	"github.com/trackaship/alarmsender/internal/dispatch"
	"github.com/trackaship/alarmsender/internal/domain"
	"github.com/trackaship/alarmsender/internal/logging"
	"github.com/trackaship/alarmsender/internal/push"
	"github.com/trackaship/alarmsender/internal/repo"
	"github.com/trackaship/alarmsender/internal/repo/firestoredb"
	"github.com/trackaship/alarmsender/internal/repo/memory"
	"github.com/trackaship/alarmsender/internal/repo/postgres"
	"github.com/trackaship/alarmsender/internal/run"
	"github.com/trackaship/alarmsender/internal/scan"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, "alarmsender:", err)
		os.Exit(1)
	}
}

func realMain() (err error) {
	_ = godotenv.Load() // optional .env, same surface the deploy scripts write

	cfg := config.FromEnv()
	logger, lerr := logging.NewLogger(cfg.LogDir)
	if lerr != nil {
		return fmt.Errorf("logger: %w", lerr)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	projectID, perr := projectIDFromKey(cfg.CredentialsFile)
	if perr != nil {
		logger.Error("bootstrap_failed", zap.Error(perr))
		return perr
	}

	fsClient, ferr := firestore.NewClient(ctx, projectID,
		option.WithCredentialsFile(cfg.CredentialsFile))
	if ferr != nil {
		logger.Error("bootstrap_failed", zap.Error(ferr))
		return fmt.Errorf("firestore client: %w", ferr)
	}
	defer func() { err = multierr.Append(err, fsClient.Close()) }()

	alerts := firestoredb.New(fsClient, firestoredb.Layout{
		UsersCollection:  cfg.UsersCollection,
		AlertsCollection: cfg.AlertsCollection,
		TokenField:       cfg.TokenField,
		TargetField:      cfg.TargetField,
		LabelField:       cfg.LabelField,
		ModeField:        cfg.ModeField,
		RadiusField:      cfg.RadiusField,
		LatField:         cfg.LatField,
		LonField:         cfg.LonField,
	}, logger)

	var positions repo.PositionStore
	if cfg.DatabaseURL != "" {
		pg, perr := postgres.New(ctx, cfg.DatabaseURL, logger)
		if perr != nil {
			logger.Error("bootstrap_failed", zap.Error(perr))
			return fmt.Errorf("position store: %w", perr)
		}
		defer pg.Close()
		positions = pg
	} else {
		logger.Warn("no_database_url", zap.String("note", "every target will resolve to no position"))
		positions = memory.New()
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if merr := http.ListenAndServe(cfg.MetricsAddr, mux); merr != nil {
				logger.Warn("metrics_listener_stopped", zap.Error(merr))
			}
		}()
		logger.Info("metrics_listening", zap.String("addr", cfg.MetricsAddr))
	}

	transport := push.NewFCM(cfg.FCMServerKey, cfg.FCMEndpoint, cfg.SendTimeout, logger)

	orch := run.New(
		alerts,
		scan.New(alerts, positions, logger),
		dispatch.New(transport, dispatch.Templates{
			Title: cfg.TitleTemplate,
			Body:  cfg.BodyTemplate,
		}, cfg.MaxConcurrency, logger),
		run.Probe{
			Owner: domain.OwnerID(cfg.ProbeOwnerID),
			Alert: domain.AlertID(cfg.ProbeAlertID),
		},
		logger,
	)

	summary, rerr := orch.Run(ctx)
	fmt.Println(summary)
	if rerr != nil {
		logger.Error("run_aborted", zap.Error(rerr))
		return rerr
	}
	return nil
}

// projectIDFromKey extracts the GCP project ID from the service-account key
// so the operator only has to configure the key's location.
func projectIDFromKey(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read credentials %s: %w", path, err)
	}
	var key struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &key); err != nil {
		return "", fmt.Errorf("parse credentials %s: %w", path, err)
	}
	if key.ProjectID == "" {
		return "", errors.New("credentials file has no project_id")
	}
	return key.ProjectID, nil
}
