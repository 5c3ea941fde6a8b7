package cmd

import (
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	"github.com/pilosa/feedgen/kafka"
	"github.com/spf13/cobra"
)

// KafkagenMain is wrapped by NewKafkagenCommand and only exported for testing
// purposes.
var KafkagenMain *kafka.GenMain

// NewKafkagenCommand returns a new cobra command wrapping KafkagenMain.
func NewKafkagenCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	KafkagenMain = kafka.NewGenMain()
	command, err := cobrafy.Command(KafkagenMain)
	if err != nil {
		panic(err)
	}
	command.Use = "kafkagen"
	command.Short = "kafkagen - put fake documents into kafka"
	command.Long = `Produces random documents to a topic. If registry-url is set they
are avro encoded with a schema registered there, otherwise they are json.`
	return command
}

func init() {
	subcommandFns["kafkagen"] = NewKafkagenCommand
}
