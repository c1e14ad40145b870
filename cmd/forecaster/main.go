package main

import (
	"os"

	"TradingGuide/cmd/forecaster/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
