package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"snakes-hunt-service/internal/config"
	"snakes-hunt-service/internal/logging"
)

// NewCreateSuperadminCmd bootstraps the first superadmin account.
func NewCreateSuperadminCmd(configPath *string) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-superadmin",
		Short: "Create a superadmin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SUPERADMIN_PASSWORD")
			}
			return createSuperadmin(cmd.Context(), *configPath, username, password)
		},
	}
	cmd.Flags().StringVar(&username, "username", "superadmin", "superadmin username")
	cmd.Flags().StringVar(&password, "password", "", "superadmin password (or SUPERADMIN_PASSWORD)")
	return cmd
}

func createSuperadmin(ctx context.Context, configPath, username, password string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	svc, err := buildServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	account, err := svc.auth.CreateSuperadmin(ctx, username, password)
	if err != nil {
		return err
	}
	log.WithField("id", account.ID).Infof("superadmin %q created", account.Username)
	return nil
}
