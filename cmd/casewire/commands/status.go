package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/casewire/casewire/internal/printer"
	"github.com/casewire/casewire/internal/scheduler"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running casewire engine",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8081", "base URL of the health endpoint")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(statusAddr + "/healthz")
	if err != nil {
		return printer.Error(
			"Engine unreachable",
			err.Error(),
			[]string{"Start it with 'casewire serve'", "Point --addr at the health listen address"},
		)
	}
	defer resp.Body.Close()

	var health scheduler.Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return printer.Error("Malformed health response", err.Error(), nil)
	}

	if health.Running {
		printer.Success("Dispatch loop running\n")
	} else {
		printer.Warning("Dispatch loop stopped\n")
	}
	printer.Printf("  knowledge sources: %d\n", health.Sources)
	printer.Printf("  queued tasks:      %d\n", health.Queued)
	printer.Printf("  active tasks:      %d\n", health.Active)

	if !health.Running {
		return fmt.Errorf("engine not running")
	}
	return nil
}
