package cmds

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var recordCount *int64

func init() {
	recordCount = headCmd.PersistentFlags().Int64P("records", "n", 5, "The number of records to show")
	rootCmd.AddCommand(headCmd)
}

var headCmd = &cobra.Command{
	Use:   "head file-name.rowstream",
	Short: "Prints the first n records of the stream file",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			os.Exit(1)
		}

		codec, err := selectedCompression()
		if err != nil {
			log.Fatal(err)
		}

		if err := catFile(os.Stdout, args[0], codec, *recordCount, false); err != nil {
			log.Fatal(err)
		}
	},
}
