// Command dockit loads YAML fixtures into the in-memory store and runs
// collection queries or watches against it.
//
//	dockit [-config dir] [-fixture file]... query [-where "field op value"]... [-order field] [-desc] [-limit n] <collection>
//	dockit [-config dir] [-fixture file]... watch [-where ...] [-then file]... [-delete path]... <collection>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/syntrixbase/dockit/internal/config"
	"github.com/syntrixbase/dockit/internal/logging"
	"github.com/syntrixbase/dockit/pkg/docstore/memory"
	"github.com/syntrixbase/dockit/pkg/listener"
	"github.com/syntrixbase/dockit/pkg/model"
	"gopkg.in/yaml.v3"
)

const usage = `usage: dockit [-config dir] [-fixture file]... <command> [flags] <collection>

commands:
  query   print the documents matching the query as JSON lines
  watch   print the initial snapshot, apply -then fixtures and -delete paths, print every change
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "dockit:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dockit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configDir := fs.String("config", "config", "configuration directory")
	var fixtures listFlag
	fs.Var(&fixtures, "fixture", "fixture file to load, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	storeCfg := cfg.Store.Config
	storeCfg.Fixtures = append(storeCfg.Fixtures, fixtures...)
	store, err := memory.New(memory.WithConfig(storeCfg), memory.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	defer store.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "query":
		return runQuery(ctx, store, rest, stdout, stderr)
	case "watch":
		return runWatch(ctx, store, logger.Logger, rest, stdout, stderr)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type queryFlags struct {
	fs     *flag.FlagSet
	wheres whereFlag
	order  *string
	desc   *bool
	limit  *int
}

func newQueryFlags(name string, stderr io.Writer) *queryFlags {
	q := &queryFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	q.fs.SetOutput(stderr)
	q.fs.Var(&q.wheres, "where", `filter "field op value", repeatable; value is YAML`)
	q.order = q.fs.String("order", "", "order by field")
	q.desc = q.fs.Bool("desc", false, "descending order")
	q.limit = q.fs.Int("limit", 0, "maximum number of documents")
	return q
}

func (q *queryFlags) build() (model.CollectionQuery, error) {
	if q.fs.NArg() != 1 {
		return model.CollectionQuery{}, errors.New("expected exactly one collection path")
	}
	col, err := model.ParseCollection(q.fs.Arg(0))
	if err != nil {
		return model.CollectionQuery{}, err
	}
	cq := model.NewCollectionQuery(col)
	for _, f := range q.wheres {
		cq = cq.Where(f.Field, f.Op, f.Value)
	}
	if *q.order != "" {
		cq = cq.OrderBy(*q.order, *q.desc)
	}
	if *q.limit > 0 {
		cq = cq.WithLimit(*q.limit)
	}
	return cq, cq.Validate()
}

func runQuery(ctx context.Context, store *memory.Store, args []string, stdout, stderr io.Writer) error {
	flags := newQueryFlags("query", stderr)
	if err := flags.fs.Parse(args); err != nil {
		return err
	}
	q, err := flags.build()
	if err != nil {
		return err
	}

	docs, err := store.ExecuteCollectionQuery(ctx, q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return nil
}

type event struct {
	Type model.ChangeType `json:"type"`
	ID   string           `json:"id,omitempty"`
	Data model.Document   `json:"data,omitempty"`
}

const initialLoad model.ChangeType = "initial"

func runWatch(ctx context.Context, store *memory.Store, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	flags := newQueryFlags("watch", stderr)
	var then, deletes listFlag
	flags.fs.Var(&then, "then", "fixture file applied after the initial snapshot, repeatable")
	flags.fs.Var(&deletes, "delete", "document path deleted after the -then fixtures, repeatable")
	if err := flags.fs.Parse(args); err != nil {
		return err
	}
	q, err := flags.build()
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		enc     = json.NewEncoder(stdout)
		encErr  error
		loadErr error
	)
	emit := func(t model.ChangeType) func(model.Document) {
		return func(doc model.Document) {
			mu.Lock()
			defer mu.Unlock()
			if encErr == nil {
				encErr = enc.Encode(event{Type: t, ID: doc.GetID(), Data: doc})
			}
		}
	}

	l := listener.New[model.Document](store, q,
		listener.WithLogger[model.Document](logger),
		listener.OnAdded(emit(model.ChangeAdded)),
		listener.OnModified(emit(model.ChangeModified)),
		listener.OnRemoved(emit(model.ChangeRemoved)),
		listener.OnInitialLoad[model.Document](func() {
			mu.Lock()
			defer mu.Unlock()
			if encErr == nil {
				encErr = enc.Encode(event{Type: initialLoad})
			}
		}),
		listener.OnError[model.Document](func(err error) {
			mu.Lock()
			defer mu.Unlock()
			loadErr = errors.Join(loadErr, err)
		}),
	)
	if err := l.StartListening(ctx); err != nil {
		return err
	}
	defer l.StopListening()

	if err := settle(ctx, store); err != nil {
		return err
	}
	if err := store.LoadFixtures(ctx, then...); err != nil {
		return err
	}
	for _, p := range deletes {
		ref, err := model.ParseReference(p)
		if err != nil {
			return err
		}
		doc, ok := ref.(model.DocumentRef)
		if !ok {
			return fmt.Errorf("%s: not a document path", p)
		}
		if err := store.ExecuteDeletion(ctx, model.Delete(doc)); err != nil {
			return err
		}
	}
	if err := settle(ctx, store); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	return errors.Join(encErr, loadErr)
}

func settle(ctx context.Context, store *memory.Store) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return store.WaitIdle(ctx)
}

type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

type whereFlag []model.Filter

func (f *whereFlag) String() string { return fmt.Sprint(*f) }

// Set parses "field op value". The value is decoded as YAML, so 30 is a
// number, true a bool and [a, b] a list.
func (f *whereFlag) Set(v string) error {
	parts := strings.Fields(v)
	if len(parts) < 3 {
		return fmt.Errorf("filter %q: want \"field op value\"", v)
	}
	op := model.FilterOp(parts[1])
	if !op.IsValid() {
		return fmt.Errorf("filter %q: unknown operator %q", v, parts[1])
	}
	raw := strings.TrimPrefix(strings.TrimSpace(v), parts[0])
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), parts[1]))
	var value interface{}
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return fmt.Errorf("filter %q: %w", v, err)
	}
	*f = append(*f, model.Where(parts[0], op, value))
	return nil
}
