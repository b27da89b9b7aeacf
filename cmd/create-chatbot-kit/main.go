package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chatbot-kit/internal/scaffold"
)

func main() {
	var arg string
	if len(os.Args) > 1 {
		arg = os.Args[1]
	}
	name := scaffold.ProjectName(arg)

	logger := log.New(os.Stderr, "", 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scaffold.New(scaffold.ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}, logger)

	if _, err := s.Create(ctx, name); err != nil {
		if errors.Is(err, scaffold.ErrExists) {
			logger.Printf("✗ %v", err)
		} else {
			logger.Printf("✗ Failed to create project: %v", err)
		}
		stop()
		os.Exit(1)
	}

	fmt.Printf("\n✓ Project ready. Next steps:\n\n  cd %s\n  bun dev\n\n", name)
}
