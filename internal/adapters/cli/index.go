package cli

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/textbook-tutor/internal/bootstrap"
	"github.com/kirillkom/textbook-tutor/internal/config"
	"github.com/kirillkom/textbook-tutor/internal/core/usecase"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/corpus"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/storage/localfs"
)

func newIndexCommand(opts Options) *cobra.Command {
	index := &cobra.Command{
		Use:   "index",
		Short: "Manage vector indices",
	}

	var textOnly, figuresOnly bool
	build := &cobra.Command{
		Use:   "build",
		Short: "Embed titles and subchapters and write the indices with their metadata files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if textOnly && figuresOnly {
				return fmt.Errorf("--text-only and --figures-only are mutually exclusive")
			}
			cfg := opts.LoadConfig()
			builder := usecase.NewIndexBuildUseCase(opts.NewEmbedder(cfg), cfg.EmbedBatchSize)

			summary := map[string]any{"vector_backend": cfg.VectorBackend}
			if !figuresOnly {
				titles, err := buildTextIndex(cmd, opts, cfg, builder)
				if err != nil {
					return err
				}
				summary["titles"] = titles
				summary["metadata_path"] = cfg.MetadataPath
			}
			if !textOnly {
				subchapters, err := buildFiguresIndex(cmd, opts, cfg, builder)
				if err != nil {
					return err
				}
				summary["subchapters"] = subchapters
				summary["subchapter_metadata_path"] = cfg.SubchapterMetadataPath
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	build.Flags().BoolVar(&textOnly, "text-only", false, "build only the passage title index")
	build.Flags().BoolVar(&figuresOnly, "figures-only", false, "build only the figure subchapter index")

	index.AddCommand(build)
	return index
}

func buildTextIndex(cmd *cobra.Command, opts Options, cfg config.Config, builder *usecase.IndexBuildUseCase) (int, error) {
	kb, err := corpus.LoadKnowledge(cfg.KnowledgePath)
	if err != nil {
		return 0, err
	}
	writer, err := opts.NewIndexWriter(cfg, bootstrap.TextIndex)
	if err != nil {
		return 0, err
	}
	metadata, err := builder.BuildText(cmd.Context(), kb, writer)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := corpus.EncodeMetadata(&buf, metadata); err != nil {
		return 0, err
	}
	if err := saveFile(cmd, cfg.MetadataPath, &buf); err != nil {
		return 0, err
	}
	return len(metadata), nil
}

func buildFiguresIndex(cmd *cobra.Command, opts Options, cfg config.Config, builder *usecase.IndexBuildUseCase) (int, error) {
	records, err := corpus.LoadFigures(cfg.FiguresPath)
	if err != nil {
		return 0, err
	}
	writer, err := opts.NewIndexWriter(cfg, bootstrap.FiguresIndex)
	if err != nil {
		return 0, err
	}
	subchapters, err := builder.BuildFigures(cmd.Context(), records, writer)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := corpus.EncodeSubchapterMap(&buf, subchapters); err != nil {
		return 0, err
	}
	if err := saveFile(cmd, cfg.SubchapterMetadataPath, &buf); err != nil {
		return 0, err
	}
	return subchapters.Len(), nil
}

func saveFile(cmd *cobra.Command, path string, data *bytes.Buffer) error {
	storage, err := localfs.New(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("init storage for %s: %w", path, err)
	}
	if err := storage.Save(cmd.Context(), filepath.Base(path), data); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
