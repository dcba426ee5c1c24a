package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example config file",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	wrote, err := writeIfNotExists(configFile, []byte(exampleConfig))
	if err != nil {
		return err
	}
	if !wrote {
		fmt.Printf("Config file %s already exists.\n", configFile)
		return nil
	}
	fmt.Printf("Wrote %s.\nSet PAGE_ID, PAGE_ACCESS_TOKEN and WEBHOOK_URL in the environment or a .env file.\n", configFile)
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

const exampleConfig = `# fb-discord-watcher configuration
#
# Secrets never live in this file. Set PAGE_ACCESS_TOKEN and
# WEBHOOK_URL in the environment or in a .env file next to the binary.
# Every other setting can also come from the environment variable named
# in parentheses; environment wins over this file.

page:
  # Numeric id of the Facebook page to watch (PAGE_ID).
  id: ""
  # Posts fetched per pass, 1-100 (POSTS_LIMIT).
  posts_limit: 5
  # Override the Graph API endpoint (GRAPH_BASE_URL).
  # graph_base_url: "https://graph.facebook.com/v19.0"

webhook:
  # Display name on the announcement (WEBHOOK_USERNAME).
  username: ""
  # Plain-text line above the embed (WEBHOOK_CONTENT).
  content: ""
  # "link" embeds the picture by URL; "upload" re-uploads it to
  # Discord so the announcement survives CDN link expiry (IMAGE_MODE).
  image_mode: link

state:
  # Watermark file remembering the last announced post (STATE_FILE).
  path: .fb-discord-watcher/state.json

history:
  # Optional sqlite archive of everything announced (HISTORY_DB).
  # Empty disables archiving.
  path: ""

log:
  # debug, info, warn or error (LOG_LEVEL).
  level: info
  # text or json (LOG_FORMAT).
  format: text

watch:
  # Schedule for the watch command: five-field cron or @every 5m
  # (WATCH_SCHEDULE).
  schedule: "@every 5m"
`
