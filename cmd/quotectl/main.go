// Command quotectl performs operator tasks against the quoteboard stores:
// issuing login tokens, seeding the moderation queue, deleting quotes and
// managing encrypted backups.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dukerupert/quoteboard/internal/auth"
	"github.com/dukerupert/quoteboard/internal/backend"
	"github.com/dukerupert/quoteboard/internal/backup"
	"github.com/dukerupert/quoteboard/internal/config"
	"github.com/dukerupert/quoteboard/internal/logging"
	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/store"
)

const usage = `usage: quotectl <command> [flags]

commands:
  issue-token   create a one-time login link
  import-limbo  queue candidates from a JSON file
  delete-quote  remove a published quote
  backup        run, list, restore or prune encrypted SQLite backups
`

var errUsage = errors.New("usage")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "quotectl:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errUsage
	}

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "issue-token":
		return issueToken(ctx, b, cfg, rest, out)
	case "import-limbo":
		return importLimbo(ctx, b, rest, out)
	case "delete-quote":
		return deleteQuote(ctx, b, rest, out)
	case "backup":
		return runBackup(ctx, b, cfg, rest, out)
	}
	fmt.Fprint(out, usage)
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func issueToken(ctx context.Context, b *backend.Backend, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.Int64("subject", 0, "subject (chat user) id")
	username := fs.String("username", "", "username")
	displayName := fs.String("display-name", "", "display name, defaults to username")
	ttl := fs.Duration("ttl", cfg.TokenTTL, "token lifetime")
	baseURL := fs.String("base-url", "http://localhost:"+cfg.Port, "public base URL for the login link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == 0 || *username == "" {
		return fmt.Errorf("%w: -subject and -username are required", errUsage)
	}

	token, err := auth.GenerateToken()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	t, err := b.Tokens.Create(ctx, model.AuthToken{
		Token:       token,
		SubjectID:   *subject,
		Username:    *username,
		DisplayName: *displayName,
		CreatedAt:   now,
		ExpiresAt:   now.Add(*ttl),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s/auth/%s\nexpires %s\n", strings.TrimRight(*baseURL, "/"), t.Token, t.ExpiresAt.Format(time.RFC3339))
	return nil
}

// limboRecord accepts both the current export format and the original one,
// which named the author "user" and could carry numeric ids.
type limboRecord struct {
	MessageID json.Number `json:"message_id"`
	Content   string      `json:"content"`
	Author    string      `json:"author"`
	User      string      `json:"user"`
	Timestamp string      `json:"timestamp"`
}

func importLimbo(ctx context.Context, b *backend.Backend, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import-limbo", flag.ContinueOnError)
	fs.SetOutput(out)
	file := fs.String("file", "", "JSON file holding an array of candidates")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: -file is required", errUsage)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}
	records, err := parseLimbo(data)
	if err != nil {
		return err
	}

	var added, skipped int
	for _, c := range records {
		err := b.Limbo.Create(ctx, c)
		switch {
		case errors.Is(err, store.ErrConflict):
			skipped++
		case err != nil:
			return fmt.Errorf("queue %s: %w", c.MessageID, err)
		default:
			added++
		}
	}
	fmt.Fprintf(out, "queued %d, skipped %d already present\n", added, skipped)
	return nil
}

func parseLimbo(data []byte) ([]model.Candidate, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var records []limboRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(records))
	for i, r := range records {
		id := r.MessageID.String()
		if id == "" {
			return nil, fmt.Errorf("candidate %d: message_id is required", i)
		}
		author := r.Author
		if author == "" {
			author = r.User
		}
		candidates = append(candidates, model.Candidate{
			MessageID: id,
			Content:   r.Content,
			Author:    author,
			Timestamp: r.Timestamp,
		})
	}
	return candidates, nil
}

func deleteQuote(ctx context.Context, b *backend.Backend, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("delete-quote", flag.ContinueOnError)
	fs.SetOutput(out)
	id := fs.Int64("id", 0, "quote message id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("%w: -id is required", errUsage)
	}

	if err := b.Quotes.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted quote %d\n", *id)
	return nil
}

func runBackup(ctx context.Context, b *backend.Backend, cfg *config.Config, args []string, out io.Writer) error {
	if b.DB == nil {
		return fmt.Errorf("backup is only available for the %s backend", config.BackendSQLite)
	}

	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(out)
	list := fs.Bool("list", false, "list recorded backups")
	restore := fs.Int64("restore", 0, "backup id to restore")
	dst := fs.String("out", "", "restore destination path")
	cleanup := fs.Bool("cleanup", false, "delete backups older than the retention period")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr := backup.NewManager(backup.S3Config{
		Endpoint:  cfg.Backup.Endpoint,
		Bucket:    cfg.Backup.Bucket,
		Region:    cfg.Backup.Region,
		AccessKey: cfg.Backup.AccessKey,
		SecretKey: cfg.Backup.SecretKey,
		Prefix:    cfg.Backup.Prefix,
	}, b.DB, store.NewSnapshotStore(b.DB), logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat).With("component", "backup"))

	switch {
	case *list:
		backups, err := mgr.List(ctx, 50)
		if err != nil {
			return err
		}
		for _, bk := range backups {
			fmt.Fprintf(out, "%d\t%s\t%s\t%d\t%s\n", bk.ID, bk.CreatedAt.Format(time.RFC3339), bk.State, bk.SizeBytes, bk.ObjectKey)
		}
		return nil
	case *restore != 0:
		if *dst == "" {
			return fmt.Errorf("%w: -out is required with -restore", errUsage)
		}
		if err := mgr.Restore(ctx, *restore, cfg.Backup.Passphrase, *dst); err != nil {
			return err
		}
		fmt.Fprintf(out, "restored backup %d to %s\n", *restore, *dst)
		return nil
	case *cleanup:
		n, err := mgr.Cleanup(ctx, cfg.Backup.Retention)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %d backups\n", n)
		return nil
	}

	id, err := mgr.Run(ctx, cfg.Backup.Passphrase)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "backup %d uploaded\n", id)
	return nil
}
