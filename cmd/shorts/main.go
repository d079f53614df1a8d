package main

import (
	"os"

	"github.com/wonny/shorttracker/cmd/shorts/commands"
)

// main is the entry point for the short tracker CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/shorts [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
