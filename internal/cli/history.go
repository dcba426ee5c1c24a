package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently delivered posts",
	RunE:  historyAction,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to list")
	rootCmd.AddCommand(historyCmd)
}

func historyAction(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.New("history is disabled; set history.path or HISTORY_DB")
	}

	db, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = db.Close() }()

	deliveries, err := db.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(deliveries) == 0 {
		fmt.Println("No deliveries recorded yet.")
		return nil
	}

	for _, d := range deliveries {
		line := fmt.Sprintf("%s  %s", d.DeliveredAt.UTC().Format("2006-01-02 15:04"), d.PostID)
		if d.Snippet != "" {
			snippet := strings.ReplaceAll(d.Snippet, "\n", " ")
			line += "  " + firstNRunes(snippet, 60)
		}
		fmt.Println(line)
	}
	return nil
}

func firstNRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
