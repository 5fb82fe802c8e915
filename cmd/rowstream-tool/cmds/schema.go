package cmds

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
}

var schemaCmd = &cobra.Command{
	Use:   "schema file-name.rowstream",
	Short: "Print the origin and the row schema of a stream file",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			os.Exit(1)
		}

		codec, err := selectedCompression()
		if err != nil {
			log.Fatal(err)
		}

		reader, fl, err := openStream(args[0], codec)
		if err != nil {
			log.Fatal(err)
		}
		defer fl.Close()

		fmt.Printf("pipeline: %s\nstep: %s\n", reader.PipelineName(), reader.StepName())
		fmt.Print(reader.Schema())
	},
}
