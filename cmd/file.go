package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/feedgen/file"
	"github.com/spf13/cobra"
)

// FileMain is wrapped by NewFileCommand and only exported for testing purposes.
var FileMain *file.Main

// NewFileCommand returns a new cobra command wrapping FileMain.
func NewFileCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	FileMain = file.NewMain()
	fileCommand := &cobra.Command{
		Use:   "file",
		Short: "feed line separated json or avro documents from a file or all files in a directory",
		Long: `Reads every document in path and writes the resulting feeds to
out-dir. Files ending in .avro are read as avro object container files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err = FileMain.Run()
			if err != nil {
				return err
			}
			fmt.Fprintf(stderr, "Done: %v\n", time.Since(start))
			return nil
		},
	}
	flags := fileCommand.Flags()
	err = commandeer.Flags(flags, FileMain)
	if err != nil {
		panic(err)
	}
	return fileCommand
}

func init() {
	subcommandFns["file"] = NewFileCommand
}
