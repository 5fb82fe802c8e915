package cmds

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fraugster/rowstream"
	"github.com/fraugster/rowstream/engine"
	"github.com/fraugster/rowstream/internal/logger"
	"github.com/fraugster/rowstream/internal/pipelinedef"
	"github.com/spf13/cobra"
)

var (
	captureConfig     *string
	captureStep       *string
	captureDir        *string
	captureBufferSize *string
)

func init() {
	captureConfig = captureCmd.Flags().String("config", "", "The pipeline definition file (YAML)")
	captureStep = captureCmd.Flags().String("step", "", "The step to capture, overrides capture.step")
	captureDir = captureCmd.Flags().String("dir", "", "The directory the stream file is created in, overrides capture.dir")
	captureBufferSize = captureCmd.Flags().String("buffer-size", "64KiB", "The write buffer size, e.g. 1MiB")
	rootCmd.AddCommand(captureCmd)
}

var captureCmd = &cobra.Command{
	Use:   "capture --config pipeline.yaml",
	Short: "Run a pipeline and capture the rows of one step into a stream file",
	Run: func(cmd *cobra.Command, args []string) {
		if *captureConfig == "" {
			_ = cmd.Usage()
			os.Exit(1)
		}

		def, err := pipelinedef.Load(*captureConfig)
		if err != nil {
			log.Fatal(err)
		}
		if *captureStep != "" {
			def.Capture.Step = *captureStep
		}
		if *captureDir != "" {
			def.Capture.Dir = *captureDir
		}
		if cmd.Flags().Changed("compression") {
			def.Capture.Compression = *compressionName
		}
		if err := def.Validate(); err != nil {
			log.Fatal(err)
		}

		bufferSize, err := humanToByte(*captureBufferSize)
		if err != nil {
			log.Fatalf("Invalid buffer size %q: %v", *captureBufferSize, err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := capture(ctx, os.Stdout, def, int(bufferSize)); err != nil {
			log.Fatal(err)
		}
	},
}

func capture(ctx context.Context, w io.Writer, def *pipelinedef.Definition, bufferSize int) error {
	codec, err := rowstream.ParseCompressionCodec(def.Capture.Compression)
	if err != nil {
		return err
	}

	l := logger.New(def.Logging, "rowstream-tool")

	p, closer, err := pipelinedef.Build(def, engine.WithLogger(l))
	if err != nil {
		return err
	}
	defer closer.Close()

	b := rowstream.NewBridge(p, def.Capture.Step,
		rowstream.WithLogger(l),
		rowstream.WithSinkProvider(rowstream.TempFileProvider{Dir: def.Capture.Dir}),
		rowstream.WithStreamOptions(
			rowstream.WithCompression(codec),
			rowstream.WithBufferSize(bufferSize),
		),
	)
	defer b.Close()

	if err := b.Run(ctx); err != nil {
		return err
	}
	if err := b.PipelineErr(); err != nil {
		l.Warn().Err(err).Msg("The pipeline reported an error, the stream may be incomplete")
	}

	fmt.Fprintf(w, "location: %s\nrows: %d\n", b.Location(), b.RowsStaged())
	return nil
}
