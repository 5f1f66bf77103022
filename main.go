package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/example/reviewq/internal/bot"
	"github.com/example/reviewq/internal/config"
	"github.com/example/reviewq/internal/database"
	"github.com/example/reviewq/internal/excel"
	"github.com/example/reviewq/internal/logging"
	"github.com/example/reviewq/internal/practice"
	"github.com/example/reviewq/internal/scheduler"
	"github.com/example/reviewq/internal/selection"
	"github.com/example/reviewq/internal/spaced_repetition"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	userFlag := &cli.Int64Flag{Name: "user", Aliases: []string{"u"}, Usage: "user ID", Required: true}
	examFlag := &cli.Int64Flag{Name: "exam", Aliases: []string{"e"}, Usage: "exam ID", Required: true}

	return &cli.App{
		Name:  "reviewq",
		Usage: "spaced-repetition question scheduler",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Usage: "dotenv file to load", Value: ".env"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the daily due-review reminder until interrupted",
				Action: serve,
			},
			{
				Name:  "import",
				Usage: "import a question pool from .xlsx or .csv",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
					&cli.StringFlag{Name: "sheet", Value: "Sheet1"},
					&cli.Int64Flag{Name: "exam", Usage: "exam for rows without one"},
					&cli.IntFlag{Name: "start-row", Value: 2},
				},
				Action: importQuestions,
			},
			{
				Name:  "draw",
				Usage: "draw a question set and store it as a session",
				Flags: []cli.Flag{
					userFlag, examFlag,
					&cli.IntFlag{Name: "quota", Aliases: []string{"n"}, Value: 20},
				},
				Action: draw,
			},
			{
				Name:  "answer",
				Usage: "record an answer",
				Flags: []cli.Flag{
					userFlag, examFlag,
					&cli.Int64Flag{Name: "question", Aliases: []string{"q"}, Required: true},
					&cli.IntFlag{Name: "type", Value: excel.TypeSingleChoice},
					&cli.BoolFlag{Name: "correct"},
				},
				Action: answer,
			},
			{
				Name:   "stats",
				Usage:  "count the exam pool per tier",
				Flags:  []cli.Flag{userFlag, examFlag},
				Action: stats,
			},
			{
				Name:   "missed",
				Usage:  "list questions answered wrongly",
				Flags:  []cli.Flag{userFlag, examFlag},
				Action: missed,
			},
			{
				Name:  "session",
				Usage: "show a stored session",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Required: true},
				},
				Action: session,
			},
		},
	}
}

// env is what every command needs.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	db     *sqlx.DB
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.LoadConfig(c.String("env-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.InitLogger(logging.Options{Output: os.Stderr, Debug: cfg.Debug})

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		e.logger.Printf("Error closing database: %v", err)
	}
}

func (e *env) service() (*practice.Service, error) {
	schedule, err := spaced_repetition.NewEbbinghausWithPolicy(e.cfg.Policy)
	if err != nil {
		return nil, err
	}
	return practice.NewService(
		database.NewTrackRepository(e.db),
		database.NewStatisticsRepository(e.db),
		database.NewSessionRepository(e.db),
		schedule,
		practice.Options{
			Location:           e.cfg.Location,
			MaxConflictRetries: e.cfg.MaxConflictRetries,
			Logger:             e.logger,
		},
	), nil
}

func serve(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	if !e.cfg.EnableScheduler {
		return errors.New("scheduler is disabled (ENABLE_SCHEDULER=false)")
	}

	var notifier scheduler.Notifier = bot.LogNotifier{Logger: e.logger}
	if e.cfg.TelegramToken != "" {
		b, err := bot.New(e.cfg.TelegramToken, bot.DefaultConfig(), e.logger)
		if err != nil {
			return err
		}
		notifier = b
	} else {
		e.logger.Println("TELEGRAM_BOT_TOKEN is not set, reminders go to the log")
	}

	s := scheduler.New(database.NewStatisticsRepository(e.db), notifier, e.cfg.Location, e.cfg.ReminderTime, e.logger)
	if err := s.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	e.logger.Printf("Received signal: %v", sig)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		e.logger.Println("Scheduler stopped successfully")
	case <-time.After(5 * time.Second):
		e.logger.Println("Timed out waiting for the scheduler to stop")
	}
	return nil
}

func importQuestions(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	cfg := excel.DefaultImportConfig()
	cfg.FilePath = c.String("file")
	cfg.SheetName = c.String("sheet")
	cfg.DefaultExam = c.Int64("exam")
	cfg.StartRow = c.Int("start-row")

	result, err := excel.NewImporter(database.NewQuestionRepository(e.db)).ImportQuestions(c.Context, cfg)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		e.logger.Println(msg)
	}
	fmt.Fprintf(c.App.Writer, "processed %d, created %d, skipped %d, errors %d\n",
		result.TotalProcessed, result.Created, result.Skipped, len(result.Errors))
	return nil
}

func draw(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *practice.Service) (interface{}, error) {
		s, err := svc.StartSession(ctx, c.Int64("user"), c.Int64("exam"), c.Int("quota"))
		var short *selection.InsufficientQuestionPoolError
		if errors.As(err, &short) {
			return nil, fmt.Errorf("%w (%s)", err, short.Detail())
		}
		return s, err
	})
}

func answer(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *practice.Service) (interface{}, error) {
		return svc.RecordAnswer(ctx, practice.Answer{
			UserID:       c.Int64("user"),
			ExamID:       c.Int64("exam"),
			QuestionID:   c.Int64("question"),
			QuestionType: c.Int("type"),
			Correct:      c.Bool("correct"),
		})
	})
}

func stats(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *practice.Service) (interface{}, error) {
		return svc.Stats(ctx, c.Int64("user"), c.Int64("exam"))
	})
}

func missed(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *practice.Service) (interface{}, error) {
		return svc.Missed(ctx, c.Int64("user"), c.Int64("exam"))
	})
}

func session(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *practice.Service) (interface{}, error) {
		return svc.Session(ctx, c.Int64("id"))
	})
}

// withService runs fn against a fresh service and prints its result as JSON.
func withService(c *cli.Context, fn func(context.Context, *practice.Service) (interface{}, error)) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	svc, err := e.service()
	if err != nil {
		return err
	}
	out, err := fn(c.Context, svc)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
