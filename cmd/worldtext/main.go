package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/roach88/worldtext/internal/cli"
)

func main() {
	// WORLDTEXT_CONFIG may come from a .env file in the working directory.
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
