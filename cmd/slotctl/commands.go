package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"adslot-market/internal/auth"
	"adslot-market/internal/config"
	"adslot-market/internal/database"
	"adslot-market/internal/logger"
	"adslot-market/internal/metrics"
	"adslot-market/internal/models"
	"adslot-market/internal/notify"
	"adslot-market/internal/repository"
	"adslot-market/internal/services"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env is the configuration and logger shared by every command
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reclaim slots whose campaign window has elapsed (single pass)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.log.Sync()

			if err := database.ConnectConfigured(e.cfg, e.log); err != nil {
				return err
			}

			repo := repository.NewRepository(database.GetDB())
			dispatcher := notify.NewInlineDispatcher(notify.NewLogMailer(e.log), e.log)
			slots := services.NewSlotService(repo, repo, dispatcher,
				metrics.New(prometheus.NewRegistry()), e.log, e.cfg.Jobs.SweepBatchSize)

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			reclaimed, err := slots.SweepExpiredSlots(ctx)
			dispatcher.Wait()
			if err != nil {
				return err
			}
			fmt.Printf("Reclaimed %d slot(s)\n", reclaimed)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Mint a bearer token for a user, or a guest credential with --proposal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			m := auth.NewJWTManager(e.cfg.App.JWTSecret, e.cfg.Access.TokenTTL)

			proposal, _ := cmd.Flags().GetString("proposal")
			if proposal != "" {
				proposalID, err := uuid.Parse(proposal)
				if err != nil {
					return fmt.Errorf("invalid proposal id: %w", err)
				}
				token, expiresAt, err := m.GenerateProposalAccessToken(proposalID)
				if err != nil {
					return err
				}
				fmt.Printf("%s\n(expires %s)\n", token, expiresAt.Format(time.RFC3339))
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("a user id or --proposal is required")
			}
			userID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || userID == 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			token, err := m.GenerateToken(uint(userID))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringP("proposal", "p", "", "Proposal id for a guest access credential")

	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations to the Postgres database",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.log.Sync()

			dir, _ := cmd.Flags().GetString("dir")

			db, err := sql.Open("postgres", e.cfg.GetDSN())
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.ApplySQLMigrations(cmd.Context(), db, dir, e.log)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("Schema is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Printf("Applied %s\n", v)
			}
			return nil
		},
	}

	cmd.Flags().StringP("dir", "d", "migrations", "Directory holding *.sql migrations")

	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show slot and proposal counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			if err := database.ConnectConfigured(e.cfg, e.log); err != nil {
				return err
			}
			db := database.GetDB().WithContext(cmd.Context())

			type row struct {
				Status string
				Count  int64
			}

			var slotRows, proposalRows []row
			if err := db.Model(&models.Slot{}).Select("status, count(*) AS count").Group("status").Scan(&slotRows).Error; err != nil {
				return err
			}
			if err := db.Model(&models.Proposal{}).Select("status, count(*) AS count").Group("status").Scan(&proposalRows).Error; err != nil {
				return err
			}

			fmt.Println("Slots:")
			for _, r := range slotRows {
				fmt.Printf("  %-18s %d\n", r.Status, r.Count)
			}
			fmt.Println("Proposals:")
			for _, r := range proposalRows {
				fmt.Printf("  %-18s %d\n", r.Status, r.Count)
			}
			return nil
		},
	}
}
