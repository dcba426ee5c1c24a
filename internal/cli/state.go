package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or change the delivery watermark",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current watermark",
	RunE:  stateShowAction,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the watermark so the next run re-seeds it",
	RunE:  stateResetAction,
}

var stateSetCmd = &cobra.Command{
	Use:   "set <post-id>",
	Short: "Set the watermark to a specific post id",
	Long:  "set rewinds or advances the watermark by hand. Posts newer than the given id are re-announced on the next run.",
	Args:  cobra.ExactArgs(1),
	RunE:  stateSetAction,
}

func init() {
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
	stateCmd.AddCommand(stateSetCmd)
	rootCmd.AddCommand(stateCmd)
}

func openStateStore() (*state.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return state.NewStore(cfg.State.Path)
}

func stateShowAction(_ *cobra.Command, _ []string) error {
	store, err := openStateStore()
	if err != nil {
		return err
	}

	wm, err := store.Load()
	if err != nil {
		return err
	}
	if wm.LastPostID == "" {
		fmt.Printf("No watermark recorded in %s; the next run seeds it.\n", store.Path())
		return nil
	}
	fmt.Printf("Last delivered post: %s (%s)\n", wm.LastPostID, store.Path())
	return nil
}

func stateResetAction(_ *cobra.Command, _ []string) error {
	store, err := openStateStore()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("Watermark cleared; the next run seeds it from the newest post without announcing.")
	return nil
}

func stateSetAction(_ *cobra.Command, args []string) error {
	store, err := openStateStore()
	if err != nil {
		return err
	}
	if err := store.Save(state.Watermark{LastPostID: args[0]}); err != nil {
		return err
	}
	fmt.Printf("Watermark set to %s.\n", args[0])
	return nil
}
