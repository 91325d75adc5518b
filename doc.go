// Package okp is a resilient retrieval client for the Red Hat Offline
// Knowledge Portal (OKP). It searches the portal's Solr index, normalizes
// and cleans the hits, and assembles a numbered context block ready to be
// placed into an LLM prompt.
//
// Retrievals are validated, cached per (query, rows, filters), retried with
// exponential backoff on retryable failures and gated by a circuit breaker.
//
//	cfg, _ := okp.ConfigFromEnv()
//	client, _ := okp.New(cfg, okp.WithLogger(logger))
//	defer client.Close()
//
//	res, err := client.Retrieve(ctx, "configure firewalld",
//	    okp.WithRows(5),
//	    okp.WithProduct("Red Hat Enterprise Linux"),
//	)
//	fmt.Println(res.Context())
//
// # Errors
//
// Every backend failure matches ErrRetrieval. Use errors.Is with
// ErrConnection, ErrSearch, ErrResponse or ErrCircuitOpen, or errors.As
// with *SearchError to read the HTTP status.
package okp
