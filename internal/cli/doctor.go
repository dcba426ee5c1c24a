package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/config"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/facebook"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/history"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/state"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and local files",
	Long:  "doctor verifies the config, state file and history archive without calling the Graph API or the webhook.",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(_ *cobra.Command, _ []string) error {
	ok := true

	config.LoadEnv(nil)
	cfg, err := config.Load(configFile)
	if err != nil {
		printCheck(false, "config: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config loaded (%s)", configFile)

	// Required settings
	if err := cfg.Validate(); err != nil {
		printCheck(false, "%v", err)
		ok = false
	} else {
		printCheck(true, "required settings present (page %s)", cfg.Page.ID)
	}

	// Webhook URL shape
	if cfg.Webhook.URL != "" {
		if u, err := url.Parse(cfg.Webhook.URL); err != nil || u.Scheme != "https" || u.Host == "" {
			printCheck(false, "webhook url is not a valid https url")
			ok = false
		} else {
			printCheck(true, "webhook url well-formed")
		}
	}

	// Graph base URL shape
	base := cfg.Page.GraphBaseURL
	if base == "" {
		base = facebook.DefaultBaseURL
	}
	if u, err := url.Parse(base); err != nil || !strings.HasPrefix(u.Scheme, "http") || u.Host == "" {
		printCheck(false, "graph base url %q is not a valid url", base)
		ok = false
	} else {
		printCheck(true, "graph base url %s", base)
	}

	// Watch schedule
	if _, err := cronParser.Parse(cfg.Watch.Schedule); err != nil {
		printCheck(false, "watch schedule %q: %v", cfg.Watch.Schedule, err)
		ok = false
	} else {
		printCheck(true, "watch schedule %q", cfg.Watch.Schedule)
	}

	// State file
	store, err := state.NewStore(cfg.State.Path)
	if err != nil {
		printCheck(false, "state store: %v", err)
		ok = false
	} else {
		wm, err := store.Load()
		switch {
		case err != nil:
			printCheck(false, "state file %s unreadable: %v", cfg.State.Path, err)
			ok = false
		case wm.LastPostID == "":
			printCheck(true, "state file %s (no watermark yet)", cfg.State.Path)
		default:
			printCheck(true, "state file %s (watermark %s)", cfg.State.Path, wm.LastPostID)
		}
	}

	// History archive
	if cfg.History.Path == "" {
		printInfo("history archive disabled")
	} else if db, err := history.Open(cfg.History.Path); err != nil {
		printCheck(false, "history db: %v", err)
		ok = false
	} else {
		_ = db.Close()
		printCheck(true, "history db %s", cfg.History.Path)
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
