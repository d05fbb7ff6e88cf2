package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	sqlitedb "corpsite/internal/platform/sqlite"
)

var errAborted = errors.New("reset aborted")

type options struct {
	Path   string `mapstructure:"path"`
	Verify bool   `mapstructure:"verify"`
	Reset  bool   `mapstructure:"reset"`
	Yes    bool   `mapstructure:"yes"`
	Quiet  bool   `mapstructure:"quiet"`
}

// newRootCmd builds the dbinit command. Flags can also be set through
// CONTACT_DB_PATH, CONTACT_DB_VERIFY and so on.
func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CONTACT_DB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "dbinit",
		Short: "Initialize the contact form database",
		Long: `Initialize the contact form database.

Creates the submission and audit tables, their indexes and the
expired_submissions view. Running it again is safe.`,
		Example: `  dbinit --path data/contact_form.db
  dbinit --verify
  dbinit --reset --yes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts options
			if err := v.Unmarshal(&opts); err != nil {
				return fmt.Errorf("parse options: %w", err)
			}
			return run(cmd.Context(), opts, in, out)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)

	flags := cmd.Flags()
	flags.String("path", "data/contact_form.db", "database file")
	flags.Bool("verify", false, "check the schema and print row counts without changing anything")
	flags.Bool("reset", false, "drop every table and recreate the schema (destroys data)")
	flags.BoolP("yes", "y", false, "do not ask before --reset")
	flags.BoolP("quiet", "q", false, "print errors only")
	_ = v.BindPFlags(flags)

	return cmd
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	say := func(format string, a ...any) {
		if !opts.Quiet {
			fmt.Fprintf(out, format+"\n", a...)
		}
	}

	if opts.Reset && !opts.Yes {
		fmt.Fprintf(out, "This deletes every submission and audit event in %s. Continue? [y/N] ", opts.Path)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			return errAborted
		}
	}

	db, err := sqlitedb.Open(ctx, sqlitedb.Config{Path: opts.Path})
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.Reset {
		if err := sqlitedb.Reset(ctx, db); err != nil {
			return err
		}
		say("Database reset: %s", opts.Path)
	}

	report, err := sqlitedb.Verify(ctx, db)
	if err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("schema incomplete, missing: %s", strings.Join(report.Missing, ", "))
	}

	if opts.Verify {
		say("Tables:  %s", strings.Join(report.Tables, ", "))
		say("Indexes: %s", strings.Join(report.Indexes, ", "))
		say("Views:   %s", strings.Join(report.Views, ", "))
		say("Contact submissions: %d", report.Submissions)
		say("Audit events:        %d", report.AuditEvents)
		return nil
	}
	say("Database initialized: %s", opts.Path)
	return nil
}
