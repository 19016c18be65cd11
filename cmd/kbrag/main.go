// Command kbrag builds and queries the agency knowledge base: it ingests
// methodology documents, case studies, audit rules and course transcripts
// into a vector store and answers reranked queries over the CLI, an HTTP API
// and an MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/54b3r/kbrag-go/cmd/kbrag/commands"
)

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := commands.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
