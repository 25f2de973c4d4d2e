package main

import (
	"os"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
