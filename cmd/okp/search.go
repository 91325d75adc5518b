package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/okp"
	"github.com/kailas-cloud/okp/internal/config"
	openaiAns "github.com/kailas-cloud/okp/internal/transport/openai"
)

// searchFlags are the retrieval flags of search and ask.
type searchFlags struct {
	commonFlags
	rows    int
	product string
	version string
	kind    string
}

func (s *searchFlags) register(fs *flag.FlagSet) {
	s.commonFlags.register(fs)
	fs.IntVar(&s.rows, "rows", 0, "max documents to return (default from config)")
	fs.StringVar(&s.product, "product", "", "filter by product name")
	fs.StringVar(&s.version, "version", "", "filter by documentation version")
	fs.StringVar(&s.kind, "kind", "", "filter by document kind")
}

func (s *searchFlags) options() []okp.RetrieveOption {
	var opts []okp.RetrieveOption
	if s.rows != 0 {
		opts = append(opts, okp.WithRows(s.rows))
	}
	if s.product != "" {
		opts = append(opts, okp.WithProduct(s.product))
	}
	if s.version != "" {
		opts = append(opts, okp.WithVersion(s.version))
	}
	if s.kind != "" {
		opts = append(opts, okp.WithDocumentKind(s.kind))
	}
	return opts
}

func parseQuery(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintf(fs.Output(), "Usage: okp %s [flags] <query>\n", fs.Name())
		fs.PrintDefaults()
		return "", errUsage
	}
	return query, nil
}

func newClient(app config.App, logger *zap.Logger, opts ...okp.Option) (*okp.Client, error) {
	return okp.New(app.OKP, append([]okp.Option{okp.WithLogger(logger)}, opts...)...)
}

func runSearch(args []string, stdout, stderr io.Writer) error {
	var f searchFlags
	var contextOnly bool
	fs := newFlagSet("search", stderr)
	f.register(fs)
	fs.BoolVar(&contextOnly, "context-only", false, "print only the LLM context")

	query, err := parseQuery(fs, args)
	if err != nil {
		return err
	}
	app, logger, err := f.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := newClient(app, logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	res, err := client.Retrieve(context.Background(), query, f.options()...)
	if err != nil {
		return err
	}

	if contextOnly {
		_, err = fmt.Fprintln(stdout, res.Context())
		return err
	}
	return writeIndented(stdout, res)
}

func runAsk(args []string, stdout, stderr io.Writer) error {
	var f searchFlags
	fs := newFlagSet("ask", stderr)
	f.register(fs)

	question, err := parseQuery(fs, args)
	if err != nil {
		return err
	}
	app, logger, err := f.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := newClient(app, logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	fmt.Fprintln(stderr, "Retrieving from OKP...")
	res, err := client.Retrieve(ctx, question, f.options()...)
	if err != nil {
		return fmt.Errorf("OKP error: %w", err)
	}
	fmt.Fprintf(stderr, "Found %d doc(s). Asking %s...\n", res.NumFound(), app.LLM.Model)

	answerer := openaiAns.NewAnswerer(&openaiAns.Config{
		APIKey:      app.LLM.APIKey,
		BaseURL:     app.LLM.BaseURL,
		Model:       app.LLM.Model,
		Temperature: app.LLM.Temperature,
		MaxTokens:   app.LLM.MaxTokens,
		Logger:      logger,
	})
	answer, err := answerer.Answer(ctx, question, res.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, answer)
	return err
}

func runHealth(args []string, stdout, stderr io.Writer) error {
	var f commonFlags
	fs := newFlagSet("health", stderr)
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	app, logger, err := f.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := newClient(app, logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	h := client.CheckHealth(context.Background())
	if err := writeIndented(stdout, h); err != nil {
		return err
	}
	if !h.Healthy() {
		return fmt.Errorf("OKP is unhealthy: %s", h.Error)
	}
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
