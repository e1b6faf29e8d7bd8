package main

import (
	"os"

	"github.com/AiCoda/skill-spec/cmd/skillspec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
