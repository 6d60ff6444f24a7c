package commands

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/casewire/casewire/internal/agents"
	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/internal/config"
	"github.com/casewire/casewire/internal/printer"
	"github.com/casewire/casewire/internal/scheduler"
	"github.com/casewire/casewire/pkg/graph"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the knowledge sources and their dispatch settings",
	RunE:  runSources,
}

var casesAddr string

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List the cases known to a running engine",
	RunE:  runCases,
}

func init() {
	sourcesCmd.Flags().StringVarP(&serveConfigPath, "config", "c", config.DefaultPath, "path to casewire.yml")
	casesCmd.Flags().StringVar(&casesAddr, "addr", "http://localhost:8080", "base URL of the report API")
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(casesCmd)
}

// runSources registers the agent roster against a throwaway scheduler so the
// listing always reflects the real registrations, overrides included.
func runSources(cmd *cobra.Command, args []string) error {
	cooldowns := map[string]time.Duration{}
	if cfg, err := config.Load(serveConfigPath); err == nil {
		cooldowns = cfg.Cooldowns()
	}

	sched := scheduler.New()
	deps := agents.Deps{Store: graph.NewStore(), Bus: broadcast.New(sched)}
	if err := agents.RegisterAll(sched, deps, cooldowns); err != nil {
		return printer.Error("Agent registration failed", err.Error(), nil)
	}

	printer.Info("Knowledge sources (most urgent first):\n")
	for _, src := range sched.Sources() {
		printer.SourceStatus(src.Name, src.Priority.String(), src.Cooldown.String())
	}
	return nil
}

func runCases(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(casesAddr + "/api/cases")
	if err != nil {
		return printer.Error(
			"Engine unreachable",
			err.Error(),
			[]string{"Start it with 'casewire serve'", "Point --addr at the report API address"},
		)
	}
	defer resp.Body.Close()

	var cases []*graph.CaseSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&cases); err != nil {
		return printer.Error("Malformed case listing", err.Error(), nil)
	}
	if len(cases) == 0 {
		printer.Info("No cases yet\n")
		return nil
	}

	for _, c := range cases {
		printer.Printf("%s  %s\n", printer.CaseID(c.CaseID), c.Label)
		printer.Printf("  status %s, %d nodes, %d edges, updated %s\n", c.Status, c.NodeCount, c.EdgeCount, c.UpdatedAt)
		if c.Summary != "" {
			printer.Printf("  %s\n", c.Summary)
		}
	}
	return nil
}
