package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/cleaker/cleaker_sdk_go/pkg/cleaker_sdk"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger"
)

// displayLimit caps the entries shown by the display command.
const displayLimit = 50

// app holds the global flags and the collaborators built from them.
type app struct {
	username string
	password string // accepted for future authentication, never sent
	endpoint string
	space    string
	verbose  bool
	timeout  time.Duration
	retries  int

	log    *zap.Logger
	client *ledger.Client
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cleaker",
		Short: "Cleaker CLI (global ledger)",
		Long: `Records and reads facts on a Cleaker ledger.

The endpoint is taken from --endpoint, then $CLEAKER_ENDPOINT, then
http://localhost:8888/graphql. Set CLEAKER_RUNTIME_MODE=mock to run against
an in-memory ledger.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.username, "username", "", "identity username (required)")
	pf.StringVar(&a.password, "password", "", "identity password (required)")
	pf.StringVar(&a.endpoint, "endpoint", "", "ledger endpoint URL")
	pf.StringVar(&a.space, "space", "", "logical namespace")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&a.timeout, "timeout", 0, "per-request timeout (default $CLEAKER_TIMEOUT or 10s)")
	pf.IntVar(&a.retries, "retries", 0, "retries for transient transport failures on reads (writes are sent once)")
	_ = root.MarkPersistentFlagRequired("username")
	_ = root.MarkPersistentFlagRequired("password")

	root.AddCommand(a.displayCmd(), a.getCmd(), a.identitiesCmd(), a.healthCmd())
	for _, verb := range ledger.WriteVerbs {
		root.AddCommand(a.writeCmd(verb))
	}
	return root
}

// execute runs root and flushes the logger whether or not the command failed.
func execute(ctx context.Context, a *app, root *cobra.Command) error {
	defer a.syncLog()
	return root.ExecuteContext(ctx)
}

func (a *app) syncLog() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// setup builds the logger and the ledger client once flags are parsed.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if a.log == nil {
		config := zap.NewProductionConfig()
		if a.verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.log = logger
	}

	if a.client == nil {
		clientOpts := []ledger.Option{ledger.WithLogger(a.log)}
		if a.retries > 0 {
			clientOpts = append(clientOpts, ledger.WithRetryPolicy(ledger.RetryPolicy{MaxRetries: a.retries}))
		}
		client, mode, err := cleaker_sdk.NewFromEnv(
			cleaker_sdk.WithEndpoint(a.endpoint),
			cleaker_sdk.WithTimeout(a.timeout),
			cleaker_sdk.WithClientOptions(clientOpts...),
		)
		if err != nil {
			return err
		}
		a.client = client
		a.log.Debug("cleaker cli starting",
			zap.String("mode", mode),
			zap.String("endpoint", client.Endpoint()),
			zap.String("username", a.username),
			zap.String("space", a.space))
	}
	return nil
}

// contextOr returns contextID, or the acting username when it is empty.
func (a *app) contextOr(contextID string) string {
	if contextID != "" {
		return contextID
	}
	return a.username
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *app) writeCmd(verb ledger.Verb) *cobra.Command {
	var key, value, contextID string
	cmd := &cobra.Command{
		Use:   string(verb),
		Short: fmt.Sprintf("Record a %q fact", verb),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.Record(commandContext(cmd), verb, a.contextOr(contextID), key, value)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s recorded\n", verb)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s not recorded\n", verb)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "fact key")
	cmd.Flags().StringVar(&value, "value", "", "fact value")
	cmd.Flags().StringVar(&contextID, "context", "", "context to record under (default: --username)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	var (
		verb, key, value, contextID, since, until string
		limit, offset                             int
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "List entries matching a filter",
		Long: `Lists entries matching a filter. --verb accepts any predicate or "all".
Entries are printed in the order the ledger returns them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ledger.NewFilter(ledger.Verb(verb)).WithContext(a.contextOr(contextID))
			flags := cmd.Flags()
			if flags.Changed("key") {
				filter = filter.WithKey(key)
			}
			if flags.Changed("value") {
				filter = filter.WithValue(value)
			}
			if flags.Changed("limit") {
				filter = filter.WithLimit(limit)
			}
			if flags.Changed("offset") {
				filter = filter.WithOffset(offset)
			}
			filter = filter.WithRange(since, until)

			entries, err := a.client.Get(commandContext(cmd), filter)
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&verb, "verb", "", `predicate to read, or "all"`)
	f.StringVar(&key, "key", "", "only entries with this key")
	f.StringVar(&value, "value", "", "only entries with this value")
	f.StringVar(&contextID, "context", "", "context to read (default: --username)")
	f.IntVar(&limit, "limit", 0, "maximum number of entries")
	f.IntVar(&offset, "offset", 0, "entries to skip")
	f.StringVar(&since, "since", "", "only entries at or after this timestamp")
	f.StringVar(&until, "until", "", "only entries at or before this timestamp")
	_ = cmd.MarkFlagRequired("verb")
	return cmd
}

func (a *app) displayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "display",
		Short: "Show public info and the latest entries of --username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				info    *ledger.PublicInfo
				entries []ledger.Entry
			)
			g, ctx := errgroup.WithContext(commandContext(cmd))
			g.Go(func() error {
				var err error
				info, err = a.client.PublicInfo(ctx, a.username)
				return err
			})
			g.Go(func() error {
				var err error
				filter := ledger.NewFilter(ledger.VerbAll).WithContext(a.username).WithLimit(displayLimit)
				entries, err = a.client.Get(ctx, filter)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if info != nil {
				fmt.Fprintf(out, "user: %s\npublic key: %s\n", info.Username, info.PublicKey)
			} else {
				fmt.Fprintf(out, "no public info for '%s'\n", a.username)
			}
			printEntries(out, entries)
			return nil
		},
	}
}

func (a *app) identitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identities",
		Short: "List registered identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.client.ListIdentities(commandContext(cmd))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "(no identities)")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id.Username)
			}
			return nil
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the ledger liveness endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.client.Health(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func printEntries(out io.Writer, entries []ledger.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "(no entries)")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s(%s, %s) @ %s\n", e.Verb, e.Key, e.Value, e.Timestamp)
	}
}
