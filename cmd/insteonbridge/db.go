package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/db"
)

// dbCmd groups the offline link database commands.
func dbCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect stored link databases",
	}
	cmd.AddCommand(dbShowCmd(configPath), dbMigrateCmd(configPath))
	return cmd
}

func dbShowCmd(configPath *string) *cobra.Command {
	var (
		asJSON bool
		peer   string
	)

	cmd := &cobra.Command{
		Use:   "show <address|name|modem>",
		Short: "Print the stored link database of an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(getConfigPath(*configPath))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if peer != "" {
				return showPeer(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], peer)
			}
			return showDB(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored document as JSON")
	cmd.Flags().StringVar(&peer, "peer", "", "only print records pointing at this address or name")
	return cmd
}

// showDB prints the mirror stored for token without touching the network.
func showDB(ctx context.Context, out io.Writer, cfg *config.Config, token string, asJSON bool) error {
	doc, path, err := readStoredDB(ctx, cfg, token)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	mirror := mirrorOf(doc)
	fmt.Fprintf(out, "%s (%s)\n%s\n", mirror.Owner(), path, mirror)
	return nil
}

// showPeer prints the records of token's stored mirror that point at peer.
func showPeer(ctx context.Context, out io.Writer, cfg *config.Config, token, peer string) error {
	peerAddr, err := resolveAddress(cfg, peer)
	if err != nil {
		return err
	}
	doc, _, err := readStoredDB(ctx, cfg, token)
	if err != nil {
		return err
	}

	mirror := mirrorOf(doc)
	found := mirror.FindAll(peerAddr)
	fmt.Fprintf(out, "%s: %d records for %s\n", mirror.Owner(), len(found), peerAddr)
	for _, e := range found {
		fmt.Fprintf(out, "  %s\n", e)
	}
	return nil
}

// readStoredDB loads the stored document for token.
func readStoredDB(ctx context.Context, cfg *config.Config, token string) (*db.Document, string, error) {
	addr, err := resolveAddress(cfg, token)
	if err != nil {
		return nil, "", err
	}

	store, sqlDB, err := openStore(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	if sqlDB != nil {
		defer sqlDB.Close() //nolint:errcheck // read-only use
	}

	path := db.PathFor(cfg.Insteon.Storage, addr)
	doc, err := store.Read(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("reading link database: %w", err)
	}
	if doc == nil {
		return nil, "", fmt.Errorf("no link database stored for %s (%s)", addr, path)
	}
	if doc.Address.IsZero() {
		doc.Address = addr
	}
	return doc, path, nil
}

func mirrorOf(doc *db.Document) *db.Mirror {
	mirror := db.NewMirror(nil)
	mirror.SetOwner(doc.Address)
	for _, e := range doc.Entries {
		mirror.Add(e)
	}
	return mirror
}

func dbMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Manage the SQLite link database schema",
		Long:      "up applies pending migrations (the default), down reverts the latest one, status lists both.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(getConfigPath(*configPath))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			return migrateDB(cmd.Context(), cmd.OutOrStdout(), cfg, action)
		},
	}
}

// migrateDB runs one schema action against the configured SQLite database.
func migrateDB(ctx context.Context, out io.Writer, cfg *config.Config, action string) error {
	if cfg.Insteon.StorageBackend != config.StorageSQLite {
		return fmt.Errorf("storage backend is %q, migrations only apply to %q",
			cfg.Insteon.StorageBackend, config.StorageSQLite)
	}

	sqlDB, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sqlDB.Close() //nolint:errcheck // nothing left to flush

	switch action {
	case "up":
		if err := sqlDB.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	case "down":
		if err := sqlDB.Rollback(ctx); err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}

	applied, pending, err := sqlDB.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, a := range applied {
		fmt.Fprintf(tw, "%s\tapplied\t%s\n", a.Version, a.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		fmt.Fprintf(tw, "%s\tpending\t%s\n", m.Version, m.Name)
	}
	return tw.Flush()
}

// resolveAddress maps "modem", a configured device name or an address to
// an address.
func resolveAddress(cfg *config.Config, token string) (insteon.Address, error) {
	token = strings.TrimSpace(token)
	if strings.EqualFold(token, insteon.ModemName) {
		return cfg.ModemAddress(), nil
	}
	for _, d := range cfg.Insteon.Devices {
		if d.Name != "" && strings.EqualFold(d.Name, token) {
			return insteon.ParseAddress(d.Address)
		}
	}

	addr, err := insteon.ParseAddress(token)
	if err != nil {
		return insteon.Address{}, fmt.Errorf("unknown device %q: %w", token, err)
	}
	return addr, nil
}
