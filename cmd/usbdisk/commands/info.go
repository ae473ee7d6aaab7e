package commands

import (
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print device identity and geometry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		disk, done, err := openDisk(ctx)
		if err != nil {
			return err
		}
		defer done()

		inq := disk.Inquiry()
		geo, err := disk.Capacity(ctx)
		if err != nil {
			return err
		}

		in, out := disk.Endpoints()
		cmd.Printf("vendor:      %s\n", inq.VendorID)
		cmd.Printf("product:     %s\n", inq.ProductID)
		cmd.Printf("revision:    %s\n", inq.ProductRev)
		cmd.Printf("removable:   %v\n", inq.Removable)
		cmd.Printf("max LUN:     %d\n", disk.MaxLUN())
		cmd.Printf("endpoints:   IN 0x%02X, OUT 0x%02X\n", in, out)
		cmd.Printf("blocks:      %d\n", geo.SectorCount)
		cmd.Printf("block size:  %d\n", geo.BlockSize)
		cmd.Printf("capacity:    %d bytes\n", geo.SectorCount*uint64(geo.BlockSize))
		return nil
	},
}
