package main

import (
	"os"

	"github.com/jvcardoso/pro-team-care-console/internal/console"
)

func main() {
	os.Exit(console.Run(os.Args[1:], os.Stdout, os.Stderr, os.Environ()))
}
