package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/config"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/discord"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/facebook"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/history"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/logging"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/relay"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/state"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch new page posts and deliver them to the webhook",
	RunE:  runAction,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRunConfig()
	if err != nil {
		return err
	}

	runner, closeArchive, err := buildRunner(cfg, log)
	if err != nil {
		return err
	}
	defer closeArchive()

	out, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	printOutcome(out)
	return nil
}

// loadConfig reads the config file and environment without demanding
// credentials. Commands that never touch the network use it.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	config.LoadEnv(nil)
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	return cfg, log, nil
}

// loadRunConfig additionally requires the page and webhook credentials.
func loadRunConfig() (*config.Config, *logrus.Logger, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// buildRunner wires a relay runner from config. The returned func
// closes the history archive, if one was opened.
func buildRunner(cfg *config.Config, log *logrus.Logger) (*relay.Runner, func(), error) {
	feed, err := facebook.NewClient(cfg.Page.ID, cfg.Page.AccessToken, cfg.Page.GraphBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create feed client: %w", err)
	}

	hook, err := discord.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Username, cfg.Webhook.Content, cfg.Webhook.ImageMode, log)
	if err != nil {
		return nil, nil, fmt.Errorf("create webhook: %w", err)
	}

	states, err := state.NewStore(cfg.State.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open state store: %w", err)
	}

	closeArchive := func() {}
	var archive relay.Archive
	if cfg.History.Path != "" {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open history: %w", err)
		}
		archive = db
		closeArchive = func() { _ = db.Close() }
	}

	runner, err := relay.NewRunner(feed, hook, states, archive, cfg.Page.PostsLimit, log)
	if err != nil {
		closeArchive()
		return nil, nil, err
	}
	return runner, closeArchive, nil
}

func printOutcome(out relay.Outcome) {
	switch out.Result {
	case relay.ResultNoPosts:
		fmt.Println("Feed returned no posts; nothing to do.")
	case relay.ResultInitialized:
		fmt.Printf("Initialized watermark at post %s (no notifications on first run).\n", out.Watermark)
	case relay.ResultDelivered:
		if out.Delivered == 0 {
			fmt.Printf("No new posts (%d fetched); watermark %s.\n", out.Fetched, out.Watermark)
			return
		}
		fmt.Printf("Delivered %d new posts (%d fetched); watermark now %s.\n", out.Delivered, out.Fetched, out.Watermark)
	}
}
