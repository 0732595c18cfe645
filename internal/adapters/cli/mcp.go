package cli

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/textbook-tutor/internal/adapters/mcp"
)

func newMCPCommand(opts Options) *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
	}
	mcpCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve retrieval tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := opts.LoadServices(cmd.Context(), opts.LoadConfig())
			if err != nil {
				return err
			}
			return opts.ServeMCP(services)
		},
	})
	return mcpCmd
}

func serveMCP(services Services) error {
	return mcpadapter.NewTools(
		services.Retriever,
		services.Locator,
		services.Figures,
		services.Lessons,
	).ServeStdio()
}
