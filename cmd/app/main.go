package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/config"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/dingtalk"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/directory"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/ldapclient"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/sync"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/translate"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
	"github.com/spf13/cobra"
)

var (
	flagEnvFile string
	flagDryRun  bool
	flagOnly    string
	flagFormat  string
	flagDept    string
)

var rootCmd = &cobra.Command{
	Use:           "app [command]",
	Short:         "Sync DingTalk departments and users into LDAP",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create missing departments and users in LDAP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("dry-run") {
			cfg.Sync.DryRun = flagDryRun
		}
		phase, err := sync.ParsePhase(flagOnly)
		if err != nil {
			return err
		}
		return runSync(cmd.Context(), cfg, phase)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print synced LDAP entries in DingTalk shape",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		client, err := ldapclient.Connect(cfg.LDAP)
		if err != nil {
			return fmt.Errorf("failed to connect to LDAP: %w", err)
		}
		defer client.Close()

		doc, err := buildExport(newReconciler(cfg, client), translate.New(schema.NewCodec(cfg.Sync.IDPrefix)))
		if err != nil {
			return err
		}
		return writeExport(cmd.OutOrStdout(), flagFormat, doc)
	},
}

var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "Print the DingTalk user IDs of one department",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		ids, err := dingtalk.New(cfg.DingTalk).ListUserIDs(cmd.Context(), schema.ID(flagDept))
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

// nolint: gochecknoinits
func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "env file to load (default .env if present)")

	syncCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "log directory writes without performing them")
	syncCmd.Flags().StringVar(&flagOnly, "only", string(sync.PhaseAll), "phase to run: all, departments or users")

	exportCmd.Flags().StringVar(&flagFormat, "format", formatYAML, "output format: yaml or json")

	listUsersCmd.Flags().StringVar(&flagDept, "dept", schema.RootID, "DingTalk department ID")

	rootCmd.AddCommand(syncCmd, exportCmd, listUsersCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		tools.Log.Fatal(err.Error())
	}
}

// setup loads the configuration and initializes the logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		return nil, err
	}
	if err := tools.InitLogger(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newReconciler(cfg *config.Config, conn directory.Conn) *directory.Reconciler {
	return directory.New(conn, directory.Options{
		BaseDN:         cfg.LDAP.RootDN,
		PasswordScheme: directory.PasswordScheme(cfg.LDAP.PasswordScheme),
		DryRun:         cfg.Sync.DryRun,
	})
}

func runSync(ctx context.Context, cfg *config.Config, phase sync.Phase) error {
	client, err := ldapclient.Connect(cfg.LDAP)
	if err != nil {
		return fmt.Errorf("failed to connect to LDAP: %w", err)
	}
	defer client.Close()

	syncer := sync.New(
		dingtalk.New(cfg.DingTalk),
		newReconciler(cfg, client),
		translate.New(schema.NewCodec(cfg.Sync.IDPrefix)),
		sync.Options{
			FetchWorkers: cfg.Sync.FetchWorkers,
			PageSize:     cfg.DingTalk.PageSize,
		},
	)

	if cfg.Sync.DryRun {
		tools.Log.Warn("Dry run: no LDAP entries will be written")
	}

	report, err := syncer.Run(ctx, phase)
	if err != nil {
		return err
	}

	tools.Log.WithFields(map[string]interface{}{
		"run_id":         report.RunID,
		"depts_created":  report.Departments.Created,
		"depts_failed":   report.Departments.Failed,
		"depts_skipped":  report.Departments.Skipped,
		"users_created":  report.Users.Created,
		"users_existing": report.Users.Existing,
		"users_failed":   report.Users.Failed,
		"users_skipped":  report.Users.Skipped,
	}).Info("Sync complete")
	return ctx.Err()
}
