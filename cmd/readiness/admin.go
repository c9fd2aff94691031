package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/Readiness/internal/config"
	"github.com/soaringjerry/Readiness/internal/db"
	"github.com/soaringjerry/Readiness/internal/services"
)

// openStore opens the database, applies pending migrations and seeds the
// catalog on first run.
func openStore(ctx context.Context, cfg config.Config) (*db.SQLiteStore, *sql.DB, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, nil, exitError(2, "config: READINESS_DB_PATH is required")
	}
	store, sqlDB, err := db.Open(ctx, cfg.DBPath, cfg.MigrationsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	sc, err := db.LoadSeedCatalog(cfg.CatalogPath)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("load seed catalog: %w", err)
	}
	seeded, err := store.SeedIfEmpty(ctx, sc)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("seed catalog: %w", err)
	}
	if seeded {
		log.Printf("seeded catalog: %d categories, %d questions", len(sc.Categories), sc.QuestionCount())
	}
	return store, sqlDB, nil
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and seed the question catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sqlDB, err := openStore(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", cfg.DBPath)
			return nil
		},
	}
}

func newCheckCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report row counts and validate the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, sqlDB, err := openStore(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return runCheck(cmd.Context(), store, cmd.OutOrStdout())
		},
	}
}

func runCheck(ctx context.Context, store *db.SQLiteStore, out io.Writer) error {
	counts, err := store.TableCounts(ctx)
	if err != nil {
		return err
	}
	for _, t := range []string{"categories", "questions", "question_options", "companies", "assessments", "assessment_results", "assessment_history", "users"} {
		fmt.Fprintf(out, "%-20s %d\n", t, counts[t])
	}

	cat, err := store.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	var sum float64
	for _, c := range cat.Categories() {
		sum += c.Weight
	}
	fmt.Fprintf(out, "max total score      %d\n", cat.MaxTotal())
	fmt.Fprintf(out, "weight sum           %.4f (drift %.2e)\n", sum, math.Abs(sum-1))
	if err := cat.Validate(); err != nil {
		return exitError(2, "catalog invalid: %v", err)
	}
	fmt.Fprintln(out, "catalog ok")
	return nil
}

func newReorderCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder",
		Short: "Renumber question positions by code within each category",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, sqlDB, err := openStore(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return runReorder(cmd.Context(), services.NewCatalogService(store), cmd.OutOrStdout())
		},
	}
}

func runReorder(ctx context.Context, catalog *services.CatalogService, out io.Writer) error {
	changes, err := catalog.ReorderByCode(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Fprintln(out, "positions already ordered")
		return nil
	}
	for _, c := range changes {
		fmt.Fprintf(out, "%-8s %d -> %d\n", c.Code, c.From, c.To)
	}
	fmt.Fprintf(out, "%d questions moved\n", len(changes))
	return nil
}

func newUserCmd(cfg *config.Config) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage assessor accounts",
	}
	var name, password string
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Create an assessor account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, sqlDB, err := openStore(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			u, err := services.NewAuthService(store, nil).CreateUser(cmd.Context(), args[0], password, name)
			if err != nil {
				return exitError(2, "user add: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	_ = add.MarkFlagRequired("password")
	user.AddCommand(add)
	return user
}
