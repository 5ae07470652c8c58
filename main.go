package main

import (
	"fmt"
	"os"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
