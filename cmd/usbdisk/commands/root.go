// Package commands implements the usbdisk CLI.
//
// Every command drives the mass storage class driver against a simulated
// device backed by a disk image file, exercising the full bulk-only
// protocol path without hardware.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbdisk/hal/sim"
	"github.com/ardnew/usbdisk/msc"
	"github.com/ardnew/usbdisk/pkg"
)

var (
	// Version information injected at build time.
	Version = "dev"

	// Global flags.
	imagePath string
	blockSize uint32
	readOnly  bool
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "usbdisk",
	Short: "USB mass storage block device tool",
	Long: `usbdisk drives the USB mass storage class driver against a simulated
bulk-only transport device backed by a disk image file.

Use "usbdisk [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		pkg.SetLogLevel(level)

		switch logFormat {
		case "json":
			pkg.SetLogFormat(pkg.LogFormatJSON)
		case "text":
			pkg.SetLogFormat(pkg.LogFormatText)
		default:
			return fmt.Errorf("invalid log format %q", logFormat)
		}
		return nil
	},
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&imagePath, "image", "i", "", "disk image file backing the simulated device")
	pf.Uint32VarP(&blockSize, "block-size", "b", 512, "logical block size in bytes")
	pf.BoolVar(&readOnly, "read-only", false, "open the image write-protected")
	pf.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.MarkPersistentFlagRequired("image")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(versionCmd)
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// openDisk opens the image as a simulated device and establishes a
// driver session over it. The returned cleanup closes the image.
func openDisk(ctx context.Context) (*msc.Disk, func() error, error) {
	store, err := sim.NewFileStorage(imagePath, blockSize, readOnly)
	if err != nil {
		return nil, nil, err
	}

	dev := sim.New(store, sim.Config{
		Vendor:    "USBDISK",
		Product:   "IMAGE DISK",
		Revision:  "1.0",
		Removable: true,
	})

	disk, err := msc.Open(ctx, dev, nil)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return disk, store.Close, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("usbdisk", Version)
	},
}
