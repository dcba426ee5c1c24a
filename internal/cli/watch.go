package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/relay"
)

// cronParser accepts standard five-field cron specs plus descriptors
// like "@hourly" and "@every 5m".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run relay passes continuously on a schedule",
	Long:  "watch runs one relay pass immediately, then repeats on the configured schedule until interrupted. A pass still running when the next tick fires is not overlapped; the tick is skipped.",
	RunE:  watchAction,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watchAction(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRunConfig()
	if err != nil {
		return err
	}

	runner, closeArchive, err := buildRunner(cfg, log)
	if err != nil {
		return err
	}
	defer closeArchive()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pass := nonOverlapping(log, func() {
		out, err := runner.Run(ctx)
		if err != nil {
			log.WithError(err).Error("relay pass failed")
			return
		}
		logOutcome(log, out)
	})

	log.WithField("schedule", cfg.Watch.Schedule).Info("watch started")
	return runWatchLoop(ctx, cfg.Watch.Schedule, log, pass)
}

// nonOverlapping wraps fn so a call arriving while another is still
// running is skipped, never queued or run concurrently.
func nonOverlapping(log *logrus.Logger, fn func()) func() {
	var busy sync.Mutex
	return func() {
		if !busy.TryLock() {
			log.Warn("previous pass still running, skipping tick")
			return
		}
		defer busy.Unlock()
		fn()
	}
}

// runWatchLoop runs pass immediately, then on schedule until ctx is
// done.
func runWatchLoop(ctx context.Context, schedule string, log *logrus.Logger, pass func()) error {
	c := cron.New(cron.WithParser(cronParser))
	if _, err := c.AddFunc(schedule, pass); err != nil {
		return fmt.Errorf("parse schedule %q: %w", schedule, err)
	}

	pass()
	c.Start()

	<-ctx.Done()
	log.Info("shutting down")
	<-c.Stop().Done()
	return nil
}

func logOutcome(log *logrus.Logger, out relay.Outcome) {
	switch out.Result {
	case relay.ResultNoPosts:
		log.Debug("feed returned no posts")
	case relay.ResultInitialized:
		log.WithField("watermark", out.Watermark).Info("watermark initialized")
	case relay.ResultDelivered:
		if out.Delivered == 0 {
			log.WithField("watermark", out.Watermark).Debug("no new posts")
			return
		}
		log.WithFields(logrus.Fields{
			"delivered": out.Delivered,
			"fetched":   out.Fetched,
			"watermark": out.Watermark,
		}).Info("delivered new posts")
	}
}
