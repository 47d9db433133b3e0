// Command vocabgen generates Go constants for the terms of a JSON-LD
// context.
//
// The context is read from a file, or resolved by IRI when no file is
// given. Well-known contexts resolve without network access.
package main

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"io"
	"iter"
	"os"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"

	ld "sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/loader"
	"sourcery.dny.nu/ldforge/ns"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	contextFile string
	documentIRI string
	namespace   string
	packageName string
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "vocabgen",
		Short:        "Generate Go constants for the terms of a JSON-LD context",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generate(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.contextFile, "context", "", "context file, resolved from --document.iri when empty")
	cmd.Flags().StringVar(&opts.documentIRI, "document.iri", "", "remote context IRI for this context")
	cmd.Flags().StringVar(&opts.namespace, "namespace", "", "namespace used by terms in this context")
	cmd.Flags().StringVar(&opts.packageName, "package.name", "vocab", "Go package name")
	_ = cmd.MarkFlagRequired("namespace")

	return cmd
}

func generate(ctx context.Context, opts options, w io.Writer) error {
	local, err := localContext(opts)
	if err != nil {
		return err
	}

	proc := ld.NewProcessor(ld.WithResolver(
		ld.NewResolver(nil, ld.WithLoader(loader.New().Load)),
	))

	active, err := proc.Context(ctx, local, opts.documentIRI)
	if err != nil {
		return err
	}

	var result bytes.Buffer
	result.WriteString("// Code generated by vocabgen. DO NOT EDIT.\n\n")
	result.WriteString("package " + opts.packageName + "\n\n")

	if opts.documentIRI != "" {
		result.WriteString("// IRI is the remote context IRI.\n")
		result.WriteString("const IRI = \"" + opts.documentIRI + "\"\n\n")
	}

	result.WriteString("// Namespace is the IRI prefix used for terms defined in this context that don't\n// map to a different namespace.\n")
	if opts.documentIRI != "" && strings.HasPrefix(opts.namespace, opts.documentIRI) {
		result.WriteString("const Namespace = IRI + \"" + strings.TrimPrefix(opts.namespace, opts.documentIRI) + "\"\n\n")
	} else {
		result.WriteString("const Namespace = \"" + opts.namespace + "\"\n\n")
	}

	terms := makeTerms(opts.namespace, active.Terms())
	slices.Sort(terms)
	result.WriteString("const (\n")
	for _, v := range terms {
		result.WriteString(v)
	}
	result.WriteString(")\n")

	src, err := format.Source(result.Bytes())
	if err != nil {
		return fmt.Errorf("failed to format generated code: %w", err)
	}

	_, err = w.Write(src)
	return err
}

// localContext returns the @context entry of the context file, or a
// reference to the document IRI.
func localContext(opts options) (json.RawMessage, error) {
	if opts.contextFile == "" {
		if opts.documentIRI == "" {
			return nil, fmt.Errorf("need a context file or a document IRI")
		}
		return json.Marshal(opts.documentIRI)
	}

	data, err := os.ReadFile(opts.contextFile)
	if err != nil {
		return nil, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", opts.contextFile, err)
	}

	raw, ok := doc[ld.KeywordContext]
	if !ok {
		return nil, fmt.Errorf("%s has no @context entry", opts.contextFile)
	}
	return raw, nil
}

func makeTerms(namespace string, terms iter.Seq2[string, ld.Term]) []string {
	texts := make([]string, 0, 100)

	for term, def := range terms {
		if def.Prefix || def.IsZero() {
			continue
		}

		value := def.IRI
		if strings.HasPrefix(value, "@") {
			continue
		}

		goTerm := goName(term)
		text := "\t// " + goTerm + " " + describe(goTerm, def) + "\n"

		if strings.HasPrefix(value, namespace) {
			texts = append(texts, text+"\t"+goTerm+" = Namespace + \""+strings.TrimPrefix(value, namespace)+"\"\n")
		} else {
			texts = append(texts, text+"\t"+goTerm+" = \""+value+"\"\n")
		}
	}

	return texts
}

func describe(goTerm string, def ld.Term) string {
	switch {
	case strings.HasPrefix(goTerm, "Type"):
		return "is a possible value for the type property."
	case strings.HasPrefix(goTerm, "Relationship") && goTerm != "Relationship":
		return "is a possible value for a relationship property."
	case def.Reverse:
		return "is the reverse of a property and points back at the\n\t// node holding it."
	case def.HasContainer(ld.KeywordList):
		return "is an ordered list."
	case def.HasContainer(ld.KeywordLanguage):
		return "is a map of language tags to strings."
	case def.Type == ld.KeywordID || def.Type == ld.KeywordVocab:
		return "is an IRI, either as a string or as an object with an\n\t// id property."
	case def.Type == ld.KeywordJSON:
		return "is a JSON value that will be left untouched."
	case strings.HasPrefix(def.Type, ns.XSD):
		return "is an xsd:" + xsdDescription(strings.TrimPrefix(def.Type, ns.XSD)) + "."
	case def.Type != "":
		return "is a " + def.Type + "."
	case def.Language != "":
		return "is a string."
	default:
		return "is a string or an object."
	}
}

func xsdDescription(typ string) string {
	switch typ {
	case "float":
		return typ + ", an IEEE single-precision 32-bit floating point\n\t// value equivalent to a Go float32"
	case "integer":
		return typ + ", an \"infinite size\" integer. The\n\t// XML specification requires you to at least accept numbers with up to\n\t// 16 digits. A Go int64 may be sufficient depending on your usage.\n\t// Remember that you can only safely express up to 53-bit precision\n\t// integers this way since JSON treats integers as floats. For bigger\n\t// values you'll need a string"
	case "nonNegativeInteger":
		return typ + ", an \"infinite size\" integer. The\n\t// XML specification requires you to at least accept numbers with up to\n\t// 16 digits. A Go uint64 may be sufficient depending on your usage.\n\t// Remember that you can only safely express up to 53-bit precision\n\t// integers this way since JSON treats integers as floats. For bigger\n\t// values you'll need a string"
	case "dateTime":
		return typ + ", equivalent to a time.Date in RFC3339Nano"
	case "duration":
		return typ + " and does not have a Go equivalent, but\n\t// can be handled as a string"
	}
	return typ
}

func isUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

// goName turns a term into an exported Go identifier. Capitalised terms
// name classes and get a Type prefix.
func goName(s string) string {
	if len(s) == 0 {
		return ""
	}

	mapped := strings.Map(func(r rune) rune {
		if r == '-' || r == '.' || r == ':' {
			return '_'
		}
		return r
	}, s)

	if strings.HasPrefix(mapped, "id") || strings.HasPrefix(mapped, "Id") {
		mapped = "ID" + mapped[2:]
	}
	if strings.HasSuffix(mapped, "id") || strings.HasSuffix(mapped, "Id") {
		mapped = mapped[:len(mapped)-2] + "ID"
	}

	mapped = strings.ReplaceAll(mapped, "url", "URL")
	mapped = strings.ReplaceAll(mapped, "Url", "URL")
	mapped = strings.ReplaceAll(mapped, "ttl", "TTL")

	if isUpper(s) {
		prefix := "Type"
		if strings.HasPrefix(s, "Is") {
			prefix = "Relationship"
		}
		return prefix + mapped
	}

	r, size := utf8.DecodeRuneInString(mapped)
	return string(unicode.ToTitle(r)) + mapped[size:]
}
