package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"chatbot-kit/internal/chat"
	"chatbot-kit/internal/completion"
	"chatbot-kit/internal/config"
	"chatbot-kit/internal/database"
	"chatbot-kit/internal/render"
	"chatbot-kit/internal/repository"
	"chatbot-kit/internal/storage"
	"chatbot-kit/internal/tui"
)

func main() {
	prompt := flag.String("p", "", "send one prompt, print the reply and exit")
	flag.Parse()

	if err := run(*prompt); err != nil {
		log.Printf("✗ %v", err)
		os.Exit(1)
	}
}

func run(prompt string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	persist, closeStore, err := openPersistence(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	store := chat.NewStore(persist)
	if err := store.Open(ctx); err != nil {
		return err
	}
	session := chat.NewSession(store, completion.NewClient(cfg.Endpoint, cfg.AccessTokenSecret))

	if prompt != "" {
		return oneShot(ctx, session, prompt, cfg.Theme)
	}

	p := tea.NewProgram(tui.New(ctx, session, cfg.Theme), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, runErr := p.Run()

	// A signal can end the program mid-reply; keep what arrived so far.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Interrupt(saveCtx); err != nil {
		log.Printf("✗ Failed to save interrupted reply: %v", err)
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("chat client: %w", runErr)
	}
	return nil
}

// oneShot runs a single exchange in a fresh conversation.
func oneShot(ctx context.Context, session *chat.Session, prompt, theme string) error {
	if _, err := session.New(ctx); err != nil {
		return err
	}
	runErr := session.Run(ctx, prompt, nil)

	msgs := session.Store().Messages()
	if len(msgs) > 0 && msgs[len(msgs)-1].Content != "" {
		renderer, err := render.NewTerminalRenderer(80, theme)
		if err != nil {
			return err
		}
		fmt.Println(strings.TrimRight(renderer.Render(msgs[len(msgs)-1].Content), "\n"))
	}
	return runErr
}

func openPersistence(cfg *config.ClientConfig) (chat.Persistence, func(), error) {
	switch cfg.Storage {
	case config.StorageRedis:
		client, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return storage.NewRedisStore(client, storage.DefaultKey), func() { client.Close() }, nil

	case config.StoragePostgres:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		if err := database.RunMigrations(pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		return repository.NewHistoryRepo(pool), pool.Close, nil

	default:
		fs, err := storage.NewFileStore(cfg.HistoryFile)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}
