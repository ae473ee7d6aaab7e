package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	restoreStart uint32
	restoreInput string
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Write a file's contents to a block range",
	Long: `Restore writes the input file to the device starting at the given
block. The input length is rounded down to whole blocks; a partial
trailing block is not written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		disk, done, err := openDisk(ctx)
		if err != nil {
			return err
		}
		defer done()

		size, err := disk.BlockSize(ctx)
		if err != nil {
			return err
		}
		total, err := disk.BlockCount(ctx)
		if err != nil {
			return err
		}

		in, err := os.Open(restoreInput)
		if err != nil {
			return err
		}
		defer in.Close()

		stat, err := in.Stat()
		if err != nil {
			return err
		}
		count := uint32(uint64(stat.Size()) / uint64(size))
		if uint64(restoreStart)+uint64(count) > total {
			return fmt.Errorf("block range %d+%d exceeds device size %d",
				restoreStart, count, total)
		}

		buf := make([]byte, dumpChunkBlocks*size)
		for written := uint32(0); written < count; {
			n := count - written
			if n > dumpChunkBlocks {
				n = dumpChunkBlocks
			}
			chunk := buf[:n*size]
			if _, err := io.ReadFull(in, chunk); err != nil {
				return err
			}
			if err := disk.WriteBlocks(ctx, restoreStart+written, chunk); err != nil {
				return err
			}
			written += n
		}

		if err := disk.Flush(ctx); err != nil {
			return err
		}

		cmd.Printf("restored %d blocks from %s\n", count, restoreInput)
		return nil
	},
}

func init() {
	restoreCmd.Flags().Uint32Var(&restoreStart, "start", 0, "first block to write")
	restoreCmd.Flags().StringVarP(&restoreInput, "in", "f", "", "input file")
	restoreCmd.MarkFlagRequired("in")
}
