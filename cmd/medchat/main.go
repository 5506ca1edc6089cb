package main

import (
	"os"

	"github.com/soyeahso/medchat/internal/cli"
	"github.com/tillberg/autorestart"
)

func main() {
	// Development only: restarts the process when the binary changes.
	if os.Getenv("MEDCHAT_DEV_RESTART") == "1" {
		go autorestart.RestartOnChange()
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
