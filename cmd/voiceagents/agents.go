package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ent0n29/voiceagents/internal/agent"
	"github.com/ent0n29/voiceagents/internal/config"
)

func newAgentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage agent configuration records",
	}
	cmd.AddCommand(newAgentsImportCommand())
	cmd.AddCommand(newAgentsListCommand())
	return cmd
}

func newAgentsImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.toml>",
		Short: "Load agents from a TOML catalog into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := agent.LoadCatalog(args[0])
			if err != nil {
				return err
			}
			store, cfg, err := openAgentStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if cfg.StoreDriver == "memory" || (cfg.StoreDriver == "" && cfg.DatabaseURL == "") {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: memory store selected; imported agents will not persist (set STORE_DRIVER)")
			}
			n, err := agent.Import(cmd.Context(), store, catalog)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d agent(s) from %s\n", n, args[0])
			return nil
		},
	}
}

func newAgentsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show stored agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openAgentStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			agents, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No agents found")
				return nil
			}
			rows := make([][]string, 0, len(agents))
			for _, a := range agents {
				vs := a.EffectiveVoiceSettings()
				voiceID := a.VoiceID
				if voiceID == "" {
					voiceID = "-"
				}
				rows = append(rows, []string{
					a.ID,
					a.Name,
					voiceID,
					strconv.FormatFloat(vs.Stability, 'f', 2, 64),
					strconv.FormatFloat(vs.SimilarityBoost, 'f', 2, 64),
					strconv.FormatBool(a.IsActive),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Voice", "Stability", "Similarity", "Active"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func openAgentStore(cmd *cobra.Command) (agent.Store, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("config error: %w", err)
	}
	store, err := agent.NewStore(cmd.Context(), agent.StoreOptions{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		return nil, config.Config{}, err
	}
	return store, cfg, nil
}
