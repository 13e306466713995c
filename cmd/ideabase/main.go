package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// envPrefix prefixes every environment variable the server reads
const envPrefix = "IDEABASE"

func main() {
	root := &cobra.Command{
		Use:   "ideabase",
		Short: "ideabase serves and queries the ideas database",
	}
	root.AddCommand(serveCmd(), queryCmd(), filesCmd())
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
