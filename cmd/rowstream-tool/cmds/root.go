package cmds

import (
	"log"

	"github.com/fraugster/rowstream"
	"github.com/spf13/cobra"
)

var compressionName *string

func init() {
	compressionName = rootCmd.PersistentFlags().StringP("compression", "c", "none", "The compression frame of the stream: none, snappy or gzip")
}

var rootCmd = &cobra.Command{
	Use:   "rowstream-tool",
	Short: "rowstream-tool captures pipeline rows into row streams and inspects stream files",
}

// Execute try to find and execute the command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %q", err)
	}
}

func selectedCompression() (rowstream.CompressionCodec, error) {
	return rowstream.ParseCompressionCodec(*compressionName)
}
