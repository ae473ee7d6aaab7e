package main

import (
	"os"

	"github.com/ardnew/usbdisk/cmd/usbdisk/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("error: %v", err)
		os.Exit(1)
	}
}
