package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joshua-takyi/airportcar/internal/config"
	"github.com/joshua-takyi/airportcar/internal/connect"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/services"
)

var Version = "dev"

func main() {
	_ = godotenv.Load(".env.local")

	if err := newRootCmd(withEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// envRunner opens an env for one command run and hands it to fn.
type envRunner func(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error

func newRootCmd(run envRunner) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operations tooling for the airport car backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("mongodb-uri", "", "MongoDB connection string (env MONGODB_URI)")
	rootCmd.PersistentFlags().String("mongodb-password", "", "replaces <password> in the URI (env MONGODB_PASSWORD)")
	rootCmd.PersistentFlags().String("mongodb-database", "airportcar", "database name (env MONGODB_DATABASE)")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "overall command timeout")
	rootCmd.PersistentFlags().Bool("verbose", false, "log at debug level")

	viper.AutomaticEnv()
	for flag, env := range map[string]string{
		"mongodb-uri":      "MONGODB_URI",
		"mongodb-password": "MONGODB_PASSWORD",
		"mongodb-database": "MONGODB_DATABASE",
	} {
		_ = viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
		_ = viper.BindEnv(flag, env)
	}
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(indexesCmd(run))
	rootCmd.AddCommand(settingsCmd(run))
	rootCmd.AddCommand(pagesCmd(run))
	rootCmd.AddCommand(slotsCmd(run))
	return rootCmd
}

// env is what every subcommand works against: the repository and the
// services built over it.
type env struct {
	logger   *slog.Logger
	indexes  models.IndexRepo
	settings *services.SettingsService
	cms      *services.CMSService
	slots    *services.AvailabilityService
}

// withEnv connects to MongoDB, runs fn, and disconnects.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := &config.Config{
		MongoDBURI:      viper.GetString("mongodb-uri"),
		MongoDBPassword: viper.GetString("mongodb-password"),
		MongoDBDatabase: viper.GetString("mongodb-database"),
	}
	if cfg.MongoDBURI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
	defer cancel()

	client, err := connect.MongoDBConnect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := connect.MongoDBDisconnect(); err != nil {
			logger.Warn("Error disconnecting from MongoDB", "error", err)
		}
	}()
	logger.Debug("Connected to MongoDB", "database", cfg.MongoDBDatabase)

	repo := models.MongodbNewRepo(client, cfg.MongoDBDatabase)
	return fn(ctx, &env{
		logger:   logger,
		indexes:  repo,
		settings: services.NewSettingsService(repo, logger),
		cms:      services.NewCMSService(repo, nil, logger),
		slots:    services.NewAvailabilityService(repo),
	})
}
