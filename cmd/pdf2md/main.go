package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "pdf2md <input>",
		Short: "Convert documents to Markdown with Gemini",
		Long: `pdf2md converts PDF, DOCX, HTML and plain-text documents to Markdown.

Large documents are split into page chunks, converted sequentially with a
sliding context window, and stitched back together with boundary repair.
Point it at a single file or at a directory to convert in batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), args[0], opts)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (single input) or directory (batch); defaults next to the input")
	f.StringVarP(&opts.apiKey, "api-key", "k", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	f.StringVarP(&opts.model, "model", "m", "", "Gemini model name")
	f.StringVarP(&opts.baseURL, "base-url", "u", "", "override the Gemini API base URL")
	f.StringVarP(&opts.promptFile, "prompt", "p", "", "custom prompt template file")
	f.IntVarP(&opts.chunkSize, "chunk-size", "c", 2, "pages per chunk")
	f.IntVar(&opts.chunkThreshold, "chunk-threshold", 10, "page count above which chunking kicks in")
	f.IntVar(&opts.contextChars, "context-chars", 500, "max characters of carried context between chunks")
	f.IntVar(&opts.maxAttempts, "max-attempts", 3, "attempts per chunk before giving up")
	f.IntVar(&opts.workers, "workers", 4, "concurrent documents in batch mode")
	f.BoolVar(&opts.noStream, "no-stream", false, "disable streaming responses")
	f.BoolVar(&opts.noChunking, "no-chunking", false, "always convert the whole document in one call")
	f.BoolVar(&opts.forceChunking, "force-chunking", false, "chunk even small documents")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.MarkFlagsMutuallyExclusive("no-chunking", "force-chunking")

	return cmd
}
