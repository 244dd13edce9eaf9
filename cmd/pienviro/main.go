package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var version = "dev"

const appName = "pienviro"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgHiRed, color.Bold).Fprintln(os.Stderr, fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
}
