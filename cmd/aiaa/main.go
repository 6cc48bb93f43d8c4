package main

import (
	"os"

	"aiaa/internal/cli"
)

func main() { os.Exit(cli.Main()) }
