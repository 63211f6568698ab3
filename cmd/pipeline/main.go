package main

import (
	"os"

	"github.com/dataforge/dataset-pipeline/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	command := NewPipelineCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewPipelineCtlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline [flags] [options]",
		Short: "pipeline controls the dataset pipeline service and processes files locally.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdGet())
	cmd.AddCommand(cli.NewCmdDelete())
	cmd.AddCommand(cli.NewCmdVersion())
	cmd.AddCommand(cli.NewCmdProcess())
	cmd.AddCommand(cli.NewCmdScan())

	return cmd
}
