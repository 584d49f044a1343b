package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vsinha/shipcheckout/pkg/interfaces/cli/commands"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	err := commands.Execute(context.Background(), commands.Options{Version: Version}, os.Args[1:])
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, commands.ErrInvalid) {
		os.Exit(2)
	}
	os.Exit(1)
}
