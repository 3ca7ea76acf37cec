package main

import (
	"fmt"
	"os"

	"avail-risk/cmd/avail-risk/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
