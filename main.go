package main

import (
	"os"

	"github.com/dosctl/dosctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
