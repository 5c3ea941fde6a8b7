package cmd

import (
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	"github.com/pilosa/feedgen/csv"
	"github.com/spf13/cobra"
)

// CSVMain is wrapped by NewCSVCommand and only exported for testing purposes.
var CSVMain *csv.Main

// NewCSVCommand returns a new cobra command wrapping CSVMain.
func NewCSVCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	CSVMain = csv.NewMain()
	command, err := cobrafy.Command(CSVMain)
	if err != nil {
		panic(err)
	}
	command.Use = "csv"
	command.Short = "csv - feed the rows of csv files as documents"
	return command
}

func init() {
	subcommandFns["csv"] = NewCSVCommand
}
