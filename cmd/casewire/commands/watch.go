package commands

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/internal/printer"
	"github.com/casewire/casewire/internal/timespec"
	"github.com/casewire/casewire/internal/watch"
)

var (
	watchRedisURL string
	watchInstance string
	watchTypeGlob string
	watchCaseID   string
	watchSince    string
	watchUntil    string
	watchJSON     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live graph updates from a running engine",
	Long: `Subscribes to an instance's Redis graph update channel and prints every
mutation as it happens: new reports, agent-created edges, node updates.

Filters can narrow the stream to one case, an event type glob, or a time
window.

Examples:
  # Watch everything
  casewire watch --instance deadletter

  # Only clustering and forensics links for one case
  casewire watch --instance deadletter --type 'edge:*' --case CASE-SILENT-HARBOR-4821

  # Line-delimited JSON for piping
  casewire watch --instance deadletter --json`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRedisURL, "redis-url", "redis://localhost:6379", "Redis the engine publishes to")
	watchCmd.Flags().StringVar(&watchInstance, "instance", "", "engine instance name (required)")
	watchCmd.Flags().StringVar(&watchTypeGlob, "type", "", "event type glob, e.g. 'node:*' or 'edge:similar_to'")
	watchCmd.Flags().StringVar(&watchCaseID, "case", "", "only events for this case")
	watchCmd.Flags().StringVar(&watchSince, "since", "", "drop events before this time ('30m' or RFC3339)")
	watchCmd.Flags().StringVar(&watchUntil, "until", "", "drop events after this time ('30m' or RFC3339)")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "line-delimited JSON output")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchInstance == "" {
		if watchInstance = os.Getenv("CASEWIRE_INSTANCE"); watchInstance == "" {
			return printer.Error("Instance required", "No --instance flag or CASEWIRE_INSTANCE set", nil)
		}
	}

	sinceMS, untilMS, err := timespec.ParseRange(watchSince, watchUntil)
	if err != nil {
		return printer.Error("Invalid time range", err.Error(), nil)
	}
	crit := watch.Criteria{
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
		TypeGlob:         watchTypeGlob,
		CaseID:           watchCaseID,
	}

	opts, err := redis.ParseURL(watchRedisURL)
	if err != nil {
		return printer.Error("Invalid --redis-url", err.Error(), nil)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return printer.Error("Redis unreachable", err.Error(),
			[]string{"Check --redis-url", "Confirm the engine's redis_url is set"})
	}

	sub, err := watch.Subscribe(ctx, rdb, watchInstance, crit)
	if err != nil {
		return printer.Error("Subscribe failed", err.Error(), nil)
	}
	defer sub.Close()

	if !watchJSON {
		printer.Info("Watching '%s' on %s", watchInstance, broadcast.GraphUpdatesChannel(watchInstance))
		if crit.HasFilters() {
			printer.Info(" (filtered)")
		}
		printer.Info("\n")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Errors():
			if ok {
				printer.Warning("%v\n", err)
			}
		case msg, ok := <-sub.Events():
			if !ok {
				return nil
			}
			printUpdate(msg)
		}
	}
}

func printUpdate(msg broadcast.Message) {
	if watchJSON {
		if data, err := json.Marshal(msg); err == nil {
			printer.Println(string(data))
		}
		return
	}

	line := msg.Timestamp.Format("15:04:05") + "  " + msg.EventType
	if payload, ok := msg.Payload.(map[string]any); ok {
		if caseID, _ := payload["case_id"].(string); caseID != "" {
			line += "  " + printer.CaseID(caseID)
		}
		if id, _ := payload["id"].(string); id != "" {
			line += "  " + id
		}
	}
	printer.Println(line)
}
