package cmd

import (
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	"github.com/pilosa/feedgen/http"
	"github.com/spf13/cobra"
)

// NewHTTPCommand returns a new cobra command which accepts documents POSTed
// as json.
func NewHTTPCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	com, err := cobrafy.Command(http.NewMain())
	if err != nil {
		panic(err)
	}
	com.Use = "http"
	com.Short = "http - feed json documents POSTed to a local server"
	return com
}

func init() {
	subcommandFns["http"] = NewHTTPCommand
}
