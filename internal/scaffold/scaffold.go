// Package scaffold creates a new chatbot project from the template repository.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	DefaultTemplate = "https://github.com/araryarch/next-chatbot-kit.git"
	DefaultName     = "next-chatbot-kit"
)

var (
	// ErrExists is returned when the target directory is already present.
	ErrExists = errors.New("directory already exists")
	// ErrInvalidName is returned for names that do not denote a new directory.
	ErrInvalidName = errors.New("invalid project name")
)

// Runner executes an external command in dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands as child processes sharing the given stdio.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// Scaffolder clones Template and installs its dependencies.
type Scaffolder struct {
	Runner   Runner
	Template string
	// Install is the dependency install command run inside the project.
	Install []string
	Logger  *log.Logger
}

func New(runner Runner, logger *log.Logger) *Scaffolder {
	return &Scaffolder{
		Runner:   runner,
		Template: DefaultTemplate,
		Install:  []string{"bun", "install"},
		Logger:   logger,
	}
}

// Create scaffolds name (DefaultName when empty) relative to the working
// directory and returns the project path. A failed clone leaves nothing
// behind; a failed install leaves the cloned files in place.
func (s *Scaffolder) Create(ctx context.Context, name string) (string, error) {
	name = ProjectName(name)
	if name == "." || name == ".." || strings.HasPrefix(name, "-") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	dir, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, name)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}

	s.Logger.Printf("Creating %s from %s", name, s.Template)
	if err := s.run(ctx, "", "git", "clone", "--depth", "1", s.Template, dir); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.Logger.Printf("✗ Failed to clean up %s: %v", dir, rmErr)
		}
		return "", err
	}
	s.Logger.Println("✓ Template cloned")

	if err := os.RemoveAll(filepath.Join(dir, ".git")); err != nil {
		return dir, fmt.Errorf("remove template history: %w", err)
	}

	if len(s.Install) > 0 {
		if err := s.run(ctx, dir, s.Install[0], s.Install[1:]...); err != nil {
			return dir, err
		}
		s.Logger.Println("✓ Dependencies installed")
	}

	return dir, nil
}

// ProjectName returns the directory name Create uses for arg.
func ProjectName(arg string) string {
	if name := strings.TrimSpace(arg); name != "" {
		return name
	}
	return DefaultName
}

func (s *Scaffolder) run(ctx context.Context, dir, name string, args ...string) error {
	if err := s.Runner.Run(ctx, dir, name, args...); err != nil {
		line := strings.Join(append([]string{name}, args...), " ")
		s.Logger.Printf("✗ %s failed: %v", line, err)
		return fmt.Errorf("%s: %w", line, err)
	}
	return nil
}
