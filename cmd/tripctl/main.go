// Package main is tripctl, a small command-line front end for the offline
// trip engine. It wires the local cache, the mutation queue, the connectivity
// probe, and the remote API client into a session controller, then maps
// subcommands onto controller operations.
//
// Usage:
//
//	tripctl create-trip --name "Coast run" [--user u1] [--start "Seattle"] [--end "Portland"]
//	tripctl list
//	tripctl show <trip-id> [--user u1]
//	tripctl add-stop --trip <trip-id> --check-in 2026-06-01 --check-out 2026-06-03 [--user u1]
//	tripctl sync --user u1
//	tripctl queue
//
// With --user set the session is a registered one; without it the session is
// a guest session and nothing ever leaves the device.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/spf13/cobra"

	"github.com/roamline/roamline/internal/cache"
	"github.com/roamline/roamline/internal/config"
	"github.com/roamline/roamline/internal/connectivity"
	"github.com/roamline/roamline/internal/queue"
	"github.com/roamline/roamline/internal/remote"
	"github.com/roamline/roamline/internal/session"
	"github.com/roamline/roamline/internal/syncer"
)

// userID backs the persistent --user flag shared by every subcommand.
var userID string

var rootCmd = &cobra.Command{
	Use:   "tripctl",
	Short: "Offline-first road trip planner CLI",
	Long: "tripctl plans trips against a device-local cache and syncs them to the\n" +
		"Roamline API when connectivity allows. Mutations made offline as a\n" +
		"registered user are queued and drained with 'tripctl sync'.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user id; omit for a guest session")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// actor builds the session actor from the --user flag.
func actor() session.Actor {
	return session.Actor{UserID: userID, Guest: userID == ""}
}

// engine bundles everything a subcommand needs.
type engine struct {
	controller *session.Controller
	queue      *queue.Queue
	store      cache.Store
}

func (e *engine) close() {
	_ = e.store.Close()
}

// newEngine is the composition root for the client side. The connectivity
// gate probes the API's health endpoint, so connectivity is decided per
// operation rather than cached.
func newEngine(cfg config.Config, userID string) (*engine, error) {
	store, err := cache.Open(cfg.CachePath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	repo := cache.NewTripRepository(store)
	q := queue.New(store)
	gate := connectivity.NewProbe(cfg.APIBaseURL + "/healthz")
	backend := remote.NewClient(cfg.APIBaseURL, userID, nil)
	processor := syncer.New(gate, q, backend, repo, logger)
	controller := session.New(gate, repo, q, backend, processor, logger)

	return &engine{controller: controller, queue: q, store: store}, nil
}

// withEngine composes a fresh engine from the environment config, runs fn
// against it under a bounded context, and tears it down.
func withEngine(fn func(ctx context.Context, eng *engine) error) error {
	cfg := config.LoadClient()

	eng, err := newEngine(cfg, userID)
	if err != nil {
		return err
	}
	defer eng.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, eng)
}

func parseDate(s string) (openapi_types.Date, error) {
	if s == "" {
		return openapi_types.Date{}, fmt.Errorf("date is required")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return openapi_types.Date{}, err
	}
	return openapi_types.Date{Time: t}, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
