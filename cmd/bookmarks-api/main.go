package main

import (
	"errors"
	"os"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "bookmarks-api",
		Short:        "Bookmarks backend service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newServeCommand(), newImportCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before configuration")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.StringSlice("allowed-origins", nil, "Origins allowed to call the API with credentials")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.Bool("log-pretty", defaults.GetBool("log.pretty"), "Human readable console logs")
	flags.String("database-driver", defaults.GetString("database.driver"), "Bookmark store driver (sqlite, postgres, mongo)")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("database-dsn", "", "Postgres DSN")
	flags.String("mongo-uri", "", "MongoDB connection URI")
	flags.String("signing-secret", "", "Session signing secret (overrides env)")
	flags.Duration("enrichment-timeout", defaults.GetDuration("enrichment.timeout"), "Page fetch timeout for title, favicon and summary")
	flags.String("redis-addr", "", "Redis address for the enrichment cache (empty disables it)")
	flags.String("summary-provider", defaults.GetString("summary.provider"), "Summary provider (heuristic, gemini)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.allowed_origins", "allowed-origins")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.pretty", "log-pretty")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "mongo.uri", "mongo-uri")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "enrichment.timeout", "enrichment-timeout")
	bindFlag(cmd, "redis.addr", "redis-addr")
	bindFlag(cmd, "summary.provider", "summary-provider")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		return err
	}

	return nil
}
