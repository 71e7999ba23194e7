package main

import (
	"flag"
	"strings"

	"ragdash/internal/dashboard"
	"ragdash/internal/types"
)

type RetrieveCommand struct {
	env commandEnv
}

func NewRetrieveCommand(env commandEnv) *RetrieveCommand {
	return &RetrieveCommand{env: env}
}

func (c *RetrieveCommand) Run(args []string) error {
	fs := flag.NewFlagSet("retrieve", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	topK := fs.Int("top-k", dashboard.DefaultTopK, "number of chunks to return (1-50)")
	enhancer := fs.Bool("enhancer", false, "rewrite the query before searching")
	rerank := fs.Bool("rerank", false, "rerank retrieved chunks")
	pipeline := fs.String("pipeline", string(types.PipelineRecursiveOverlap), "chunking pipeline: recursive_overlap|semantic")
	asJSON := fs.Bool("json", false, "print the raw response")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form := dashboard.RetrievalForm{
		Query:            strings.Join(fs.Args(), " "),
		TopK:             *topK,
		UseQueryEnhancer: *enhancer,
		UseReranking:     *rerank,
		Pipeline:         types.PipelineType(*pipeline),
	}
	req, err := form.Request()
	if err != nil {
		return err
	}

	ctx, cancel := c.env.newContext()
	defer cancel()
	b, err := c.env.open(ctx, "")
	if err != nil {
		return err
	}
	defer b.Close()

	resp, err := b.dash.Retrieve.Run(ctx, req)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(c.env.stdout, resp)
	}
	printRetrieval(c.env.stdout, resp)
	return nil
}
