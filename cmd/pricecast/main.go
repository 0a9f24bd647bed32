package main

import (
	"os"

	"github.com/wonny/pricecast/cmd/pricecast/commands"
)

// main is the entry point for the pricecast CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/pricecast [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
