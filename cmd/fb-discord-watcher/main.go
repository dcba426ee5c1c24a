package main

import (
	"os"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
