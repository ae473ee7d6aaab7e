package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dumpStart  uint32
	dumpCount  uint32
	dumpOutput string
)

// dumpChunkBlocks bounds a single READ (10) to keep the transfer length
// within the command's 16-bit block count.
const dumpChunkBlocks = 2048

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Read a block range to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		disk, done, err := openDisk(ctx)
		if err != nil {
			return err
		}
		defer done()

		total, err := disk.BlockCount(ctx)
		if err != nil {
			return err
		}
		count := dumpCount
		if count == 0 {
			count = uint32(total) - dumpStart
		}
		if uint64(dumpStart)+uint64(count) > total {
			return fmt.Errorf("block range %d+%d exceeds device size %d",
				dumpStart, count, total)
		}

		size, err := disk.BlockSize(ctx)
		if err != nil {
			return err
		}

		out, err := os.Create(dumpOutput)
		if err != nil {
			return err
		}
		defer out.Close()

		buf := make([]byte, dumpChunkBlocks*size)
		for read := uint32(0); read < count; {
			n := count - read
			if n > dumpChunkBlocks {
				n = dumpChunkBlocks
			}
			chunk := buf[:n*size]
			if err := disk.ReadBlocks(ctx, dumpStart+read, chunk); err != nil {
				return err
			}
			if _, err := out.Write(chunk); err != nil {
				return err
			}
			read += n
		}

		cmd.Printf("dumped %d blocks to %s\n", count, dumpOutput)
		return nil
	},
}

func init() {
	dumpCmd.Flags().Uint32Var(&dumpStart, "start", 0, "first block to read")
	dumpCmd.Flags().Uint32Var(&dumpCount, "count", 0, "number of blocks (0 = to end of device)")
	dumpCmd.Flags().StringVarP(&dumpOutput, "out", "o", "", "output file")
	dumpCmd.MarkFlagRequired("out")
}
