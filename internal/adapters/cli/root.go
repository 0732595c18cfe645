package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/textbook-tutor/internal/bootstrap"
	"github.com/kirillkom/textbook-tutor/internal/config"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
)

// Services are the read-side operations the commands call.
type Services struct {
	Retriever ports.PassageRetriever
	Locator   ports.SubchapterLocator
	Figures   ports.FigureCatalog
	Lessons   ports.LessonMaterialService
}

// Options lets tests swap the wiring; zero fields use the bootstrap defaults.
type Options struct {
	Out            io.Writer
	LoadConfig     func() config.Config
	LoadServices   func(ctx context.Context, cfg config.Config) (Services, error)
	NewEmbedder    func(cfg config.Config) ports.Embedder
	NewIndexWriter func(cfg config.Config, kind bootstrap.IndexKind) (ports.VectorIndexWriter, error)
	ServeMCP       func(services Services) error
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.LoadConfig == nil {
		o.LoadConfig = config.Load
	}
	if o.LoadServices == nil {
		o.LoadServices = loadServices
	}
	if o.NewEmbedder == nil {
		o.NewEmbedder = func(cfg config.Config) ports.Embedder {
			return bootstrap.NewEmbedder(cfg, bootstrap.NewExecutor(cfg, nil))
		}
	}
	if o.NewIndexWriter == nil {
		o.NewIndexWriter = func(cfg config.Config, kind bootstrap.IndexKind) (ports.VectorIndexWriter, error) {
			return bootstrap.NewIndexWriter(cfg, kind, bootstrap.NewExecutor(cfg, nil))
		}
	}
	if o.ServeMCP == nil {
		o.ServeMCP = serveMCP
	}
	return o
}

func loadServices(ctx context.Context, cfg config.Config) (Services, error) {
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return Services{}, err
	}
	return Services{
		Retriever: app.SearchUC,
		Locator:   app.LocateUC,
		Figures:   app.FigureUC,
		Lessons:   app.LessonUC,
	}, nil
}

func NewRootCommand(opts Options) *cobra.Command {
	opts = opts.withDefaults()

	root := &cobra.Command{
		Use:           "tutorctl",
		Short:         "Query and build the textbook retrieval indices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Out)

	root.AddCommand(newSearchCommand(opts))
	root.AddCommand(newLocateCommand(opts))
	root.AddCommand(newFiguresCommand(opts))
	root.AddCommand(newMaterialCommand(opts))
	root.AddCommand(newIndexCommand(opts))
	root.AddCommand(newMCPCommand(opts))
	return root
}

func printJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
