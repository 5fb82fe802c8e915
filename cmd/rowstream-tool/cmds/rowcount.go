package cmds

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rowCountCmd)
}

var rowCountCmd = &cobra.Command{
	Use:   "rowcount file-name.rowstream",
	Short: "Prints the count of rows in a stream file",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			os.Exit(1)
		}

		codec, err := selectedCompression()
		if err != nil {
			log.Fatal(err)
		}

		total, err := countRows(args[0], codec)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println("Total RowCount:", total)
	},
}
