package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"eudguide/internal/config"
	"eudguide/internal/database"
	"eudguide/internal/logger"
	"eudguide/internal/repository"
	"eudguide/internal/service"
)

var (
	exportOutput string
	importInput  string
	importForce  bool
)

var rootCmd = &cobra.Command{
	Use:   "backup",
	Short: "EudGuide household backup tool",
	Long: `Export or import the household snapshot as JSON.

Environment Variables:
  DB_TYPE        Database type: sqlite, postgres, or mysql (default: sqlite)
  DB_PATH        SQLite database path (default: ./eudguide.db)
  DATABASE_URL   PostgreSQL or MySQL connection URL`,
	SilenceUsage: true,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the household snapshot to a JSON file",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the household snapshot with a JSON backup",
	Long: `Replace the stored household snapshot with the contents of a backup file.
The backup is validated before anything is written. Restart the server afterwards.`,
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	importCmd.Flags().StringVarP(&importInput, "input", "i", "", "Input file path")
	importCmd.Flags().BoolVar(&importForce, "yes", false, "Skip the confirmation prompt")
	_ = importCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(exportCmd, importCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type backupEnv struct {
	db     *database.DB
	backup *service.BackupService
	log    *logger.Logger
}

func setup(ctx context.Context) (*backupEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if _, err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := repository.NewSnapshotRepository(db)
	return &backupEnv{db: db, backup: service.NewBackupService(repo, log), log: log}, nil
}

func (e *backupEnv) close() {
	e.log.Sync()
	e.db.Close()
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	outputPath := exportOutput
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := env.backup.Export(ctx, outputPath); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%d bytes)\n", outputPath, info.Size())
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(importInput); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	if !importForce {
		fmt.Fprint(cmd.OutOrStdout(), "WARNING: This replaces the stored household. Type 'yes' to confirm: ")
		var confirmation string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &confirmation)
		if confirmation != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
			return nil
		}
	}

	ctx := cmd.Context()
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.backup.Import(ctx, importInput); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Import complete")
	return nil
}
