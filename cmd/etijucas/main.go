package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/bus"
	"github.com/etijucas/offline/internal/cache"
	"github.com/etijucas/offline/internal/outbox"
	"github.com/etijucas/offline/internal/profile"
	"github.com/etijucas/offline/internal/store"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	db, err := store.Open(profile.DBPath(profileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot open profile %q: %v\n", profileName, err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: migrate: %v\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "status":
		cmdStatus(db, *jsonFlag)
	case "retry":
		cmdRetry(db)
	case "cancel":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: etijucas cancel <queue-id>")
			os.Exit(1)
		}
		cmdCancel(db, args[1])
	case "sweep":
		cmdSweep(db)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: etijucas [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status       Show queued writes and sync state")
	fmt.Fprintln(os.Stderr, "  retry        Return failed queue items to pending")
	fmt.Fprintln(os.Stderr, "  cancel <id>  Discard a queued write")
	fmt.Fprintln(os.Stderr, "  sweep        Remove expired cache entries")
}

func cmdStatus(db *store.DB, jsonOut bool) {
	items, err := db.ListOutbox()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	counts, err := db.OutboxCounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		out := map[string]any{"counts": counts, "items": items}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Printf("Queued writes: %d pending, %d syncing, %d failed\n\n",
		counts[store.OutboxPending], counts[store.OutboxSyncing], counts[store.OutboxFailed])
	if len(items) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Op", "Status", "Retries", "Next attempt", "Last error"})
	for _, item := range items {
		next := "-"
		if item.Status == store.OutboxPending {
			next = time.UnixMilli(item.NextAttemptAt).Local().Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{item.ID, item.Op, item.Status, item.RetryCount, next, item.LastError})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func cmdRetry(db *store.DB) {
	n, err := outbox.RetryFailed(db, bus.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Returned %d failed item(s) to pending\n", n)
}

func cmdCancel(db *store.DB, id string) {
	if err := outbox.CancelDraft(db, bus.New(), id); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Cancelled %s\n", id)
}

func cmdSweep(db *store.DB) {
	c := cache.New(db, zap.NewNop())
	n := c.ClearExpired()
	fmt.Printf("Swept %d expired cache entr%s\n", n, plural(n))
}

func plural(n int64) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
