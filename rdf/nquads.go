package rdf

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"strings"

	knakk "github.com/knakk/rdf"
)

// Serialize writes quads as N-Quads, one statement per line.
func Serialize(quads []Quad) string {
	var b strings.Builder
	for _, q := range quads {
		b.WriteString(q.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseOption configures [Parse].
type ParseOption func(*parser)

type parser struct {
	logger  *slog.Logger
	onError func(line int, text string, err error)
}

// WithParseLogger logs skipped lines at debug level.
func WithParseLogger(l *slog.Logger) ParseOption {
	return func(p *parser) {
		p.logger = l
	}
}

// WithSkipped is called for every line that couldn't be parsed. Lines are
// numbered starting at 1.
func WithSkipped(fn func(line int, text string, err error)) ParseOption {
	return func(p *parser) {
		p.onError = fn
	}
}

// Parse reads N-Quads. Lines are parsed one at a time and a line that
// can't be parsed is skipped, so this never fails.
func Parse(text string, opts ...ParseOption) []Quad {
	p := &parser{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}

	var res []Quad
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		q, err := parseLine(line)
		if err != nil {
			p.logger.Debug("skipping malformed N-Quads line",
				slog.Int("line", lineNo), slog.Any("error", err))
			if p.onError != nil {
				p.onError(lineNo, line, err)
			}
			continue
		}
		res = append(res, q)
	}

	return res
}

func parseLine(line string) (Quad, error) {
	dec := knakk.NewQuadDecoder(strings.NewReader(line), knakk.NQuads)
	q, err := dec.Decode()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Quad{}, io.ErrUnexpectedEOF
		}
		return Quad{}, err
	}

	if _, err := dec.Decode(); !errors.Is(err, io.EOF) {
		return Quad{}, errors.New("more than one statement on a line")
	}

	res := Quad{
		Subject:   fromTerm(q.Subj),
		Predicate: fromTerm(q.Pred),
		Object:    fromTerm(q.Obj),
	}
	if q.Ctx != nil {
		if g := fromTerm(q.Ctx); g.Value != "" {
			res.Graph = g
		}
	}

	if res.Predicate.Kind != KindIRI {
		return Quad{}, errors.New("predicate must be an IRI")
	}

	return res, nil
}

func fromTerm(t knakk.Term) Term {
	switch v := t.(type) {
	case knakk.IRI:
		return NewIRI(v.String())
	case knakk.Blank:
		return NewBlank(strings.TrimPrefix(v.String(), "_:"))
	case knakk.Literal:
		return NewLiteral(v.String(), v.DataType.String(), v.Lang())
	default:
		return Term{}
	}
}
