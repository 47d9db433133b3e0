package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/config"
	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/ns"
	"sourcery.dny.nu/ldforge/rdf"
	"sourcery.dny.nu/ldforge/shacl"
)

var errNotConforming = errors.New("document does not conform to the shapes")

// readInput reads the file named by the first argument, or stdin.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	return readFile(args[0])
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	var data []byte
	switch raw := v.(type) {
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		var err error
		data, err = json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s\n", data)
	return err
}

// documentCmd builds a command that reads a document and writes the
// outcome of fn.
func documentCmd(
	a *app,
	use, short string,
	fn func(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (any, error),
) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   use + " [file]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			p, err := a.processor(cmd.Context())
			if err != nil {
				return err
			}

			out, err := fn(cmd.Context(), p, doc, url)
			if err != nil {
				return err
			}

			if s, ok := out.(string); ok {
				_, err := io.WriteString(cmd.OutOrStdout(), s)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "URL of the document, used as base IRI")
	return cmd
}

func expandCmd(a *app) *cobra.Command {
	return documentCmd(a, "expand", "Expand a document",
		func(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (any, error) {
			return p.Expand(ctx, doc, url)
		})
}

func compactCmd(a *app) *cobra.Command {
	var contextPath string

	cmd := documentCmd(a, "compact", "Compact a document with a context",
		func(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (any, error) {
			local, err := readFile(contextPath)
			if err != nil {
				return nil, err
			}
			return p.CompactDocument(ctx, doc, local, url)
		})

	cmd.Flags().StringVar(&contextPath, "context", "", "File holding the compaction context")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}

func flattenCmd(a *app) *cobra.Command {
	var contextPath string

	cmd := documentCmd(a, "flatten", "Flatten a document",
		func(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (any, error) {
			var local json.RawMessage
			if contextPath != "" {
				data, err := readFile(contextPath)
				if err != nil {
					return nil, err
				}
				local = data
			}
			return p.Flatten(ctx, doc, local, url)
		})

	cmd.Flags().StringVar(&contextPath, "context", "", "File holding the context to compact the result with")
	return cmd
}

func frameCmd(a *app) *cobra.Command {
	var framePath string

	cmd := documentCmd(a, "frame", "Frame a document",
		func(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (any, error) {
			frame, err := readFile(framePath)
			if err != nil {
				return nil, err
			}
			return p.Frame(ctx, doc, frame, url)
		})

	cmd.Flags().StringVar(&framePath, "frame", "", "File holding the frame")
	_ = cmd.MarkFlagRequired("frame")
	return cmd
}

func dataset(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (*rdf.Dataset, error) {
	nodes, err := p.Expand(ctx, doc, url)
	if err != nil {
		return nil, err
	}
	return rdf.FromNodes(nodes)
}

func nquadsCmd(a *app) *cobra.Command {
	return documentCmd(a, "nquads", "Convert a document to N-Quads",
		func(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (any, error) {
			ds, err := dataset(ctx, p, doc, url)
			if err != nil {
				return nil, err
			}
			return rdf.Serialize(ds.Quads()), nil
		})
}

func canonicalCmd(a *app) *cobra.Command {
	return documentCmd(a, "canonical", "Convert a document to canonical N-Quads",
		func(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (any, error) {
			ds, err := dataset(ctx, p, doc, url)
			if err != nil {
				return nil, err
			}
			return rdf.Canonicalize(ds.Quads()), nil
		})
}

func turtleCmd(a *app) *cobra.Command {
	return documentCmd(a, "turtle", "Convert a document to Turtle",
		func(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (any, error) {
			ds, err := dataset(ctx, p, doc, url)
			if err != nil {
				return nil, err
			}
			return rdf.Turtle(ds.Quads(), ns.Default()), nil
		})
}

func yamlCmd(a *app) *cobra.Command {
	return documentCmd(a, "yaml", "Render a document as YAML",
		func(_ context.Context, _ *ldforge.Processor, doc json.RawMessage, _ string) (any, error) {
			return ldforge.YAMLPreview(doc)
		})
}

func validateCmd(a *app) *cobra.Command {
	var (
		shapesPath string
		report     shacl.Report
	)

	cmd := documentCmd(a, "validate", "Validate a document against SHACL shapes",
		func(ctx context.Context, p *ldforge.Processor, doc json.RawMessage, url string) (any, error) {
			shapes, err := readFile(shapesPath)
			if err != nil {
				return nil, err
			}
			report, err = shacl.NewValidator(p, shacl.WithLogger(a.logger)).
				ValidateDocument(ctx, string(shapes), doc, url)
			return report, err
		})

	cmd.Flags().StringVar(&shapesPath, "shapes", "", "Turtle file holding the shapes graph")
	_ = cmd.MarkFlagRequired("shapes")

	// The report is always printed, a non-conforming document also fails
	// the command.
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := run(cmd, args); err != nil {
			return err
		}
		if !report.Conforms {
			return errNotConforming
		}
		return nil
	}
	return cmd
}

func registerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register [file]",
		Short: "Register a context and print its URN",
		Long: `Register stores a context in the registry and prints the URN it can
be referenced by. The input is either a context or a document holding only
an @context entry.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var wrapped map[string]json.RawMessage
			if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped) == 1 {
				if inner, ok := wrapped[ldforge.KeywordContext]; ok {
					data = inner
				}
			}

			if a.cfg.Registry.Backend == config.BackendMemory {
				a.logger.Warn("registry is kept in memory, the context will be lost on exit")
			}

			p, err := a.processor(cmd.Context())
			if err != nil {
				return err
			}

			urn, err := p.Resolver().Register(cmd.Context(), data)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), urn)
			return nil
		},
	}
}
