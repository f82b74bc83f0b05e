package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/config"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/importer"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newImportCommand() *cobra.Command {
	var (
		filePath string
		email    string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bookmarks from a YAML file for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(filePath) == "" || strings.TrimSpace(email) == "" {
				return fmt.Errorf("--file and --email are required")
			}
			return runImport(cmd, filePath, email)
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "YAML file listing bookmarks")
	cmd.Flags().StringVar(&email, "email", "", "Email of the account receiving the bookmarks")
	return cmd
}

func runImport(cmd *cobra.Command, filePath, email string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogPretty)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	file, err := importer.LoadFile(filePath)
	if err != nil {
		return err
	}

	app, err := buildApplication(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer app.Close(context.Background()) //nolint:errcheck

	user, err := app.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user %q: %w", email, err)
	}

	bookmarkImporter, err := importer.New(app.bookmarks, logger)
	if err != nil {
		return err
	}
	report, err := bookmarkImporter.Import(ctx, bookmarks.UserID(user.ID), file.Bookmarks)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created %d, skipped %d, rejected %d\n", report.Created, report.Skipped, len(report.Rejected))
	for _, rejection := range report.Rejected {
		fmt.Fprintf(out, "  %s: %s\n", rejection.URL, rejection.Reason)
	}
	return nil
}
