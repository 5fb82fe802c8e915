package cmds

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var catRaw *bool

func init() {
	catRaw = catCmd.Flags().Bool("raw", false, "Dump the rows with their Go types")
	rootCmd.AddCommand(catCmd)
}

var catCmd = &cobra.Command{
	Use:   "cat file-name.rowstream",
	Short: "Print the rows of a stream file",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			os.Exit(1)
		}

		codec, err := selectedCompression()
		if err != nil {
			log.Fatal(err)
		}

		if err := catFile(os.Stdout, args[0], codec, -1, *catRaw); err != nil {
			log.Fatal(err)
		}
	},
}
