package main

import (
	"os"

	"ctf-scoreboard-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
