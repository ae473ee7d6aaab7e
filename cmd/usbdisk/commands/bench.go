package commands

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	benchBlocks uint32
	benchChunk  uint32
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure sequential read throughput",
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

		count := benchBlocks
		if count == 0 || uint64(count) > total {
			count = uint32(total)
		}

		buf := make([]byte, benchChunk*size)
		start := time.Now()
		for read := uint32(0); read < count; {
			n := count - read
			if n > benchChunk {
				n = benchChunk
			}
			if err := disk.ReadBlocks(ctx, read, buf[:n*size]); err != nil {
				return err
			}
			read += n
		}
		elapsed := time.Since(start)

		bytes := uint64(count) * uint64(size)
		mbps := float64(bytes) / (1 << 20) / elapsed.Seconds()
		cmd.Printf("read %d blocks (%d bytes) in %s (%.1f MiB/s)\n",
			count, bytes, elapsed.Round(time.Millisecond), mbps)
		return nil
	},
}

func init() {
	benchCmd.Flags().Uint32Var(&benchBlocks, "blocks", 0, "blocks to read (0 = whole device)")
	benchCmd.Flags().Uint32Var(&benchChunk, "chunk", 256, "blocks per transfer")
}
