package cmd

import (
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	"github.com/pilosa/feedgen/kafka"
	"github.com/spf13/cobra"
)

// KafkaMain is wrapped by NewKafkaCommand and only exported for testing
// purposes.
var KafkaMain *kafka.Main

// NewKafkaCommand returns a new cobra command wrapping KafkaMain.
func NewKafkaCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	KafkaMain = kafka.NewMain()
	command, err := cobrafy.Command(KafkaMain)
	if err != nil {
		panic(err)
	}
	command.Use = "kafka"
	command.Short = "kafka - feed documents consumed from Kafka"
	command.Long = `Consumes json, confluent avro or raw messages from the given topics.
With raw, each message becomes one document whose content is the message value.`
	return command
}

func init() {
	subcommandFns["kafka"] = NewKafkaCommand
}
