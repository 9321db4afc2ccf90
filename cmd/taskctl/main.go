package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/taskory/taskory/internal/tools/loadgen"
	"github.com/taskory/taskory/internal/tools/migrate"
	"github.com/taskory/taskory/internal/tools/reap"
	"github.com/taskory/taskory/internal/tools/seed"
)

func main() {
	root := &cobra.Command{
		Use:   "taskctl",
		Short: "Operational tooling for the task service",
	}
	root.AddCommand(
		migrate.NewRootCommand(),
		seed.NewRootCommand(),
		reap.NewRootCommand(),
		loadgen.NewRootCommand(),
	)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
