package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bamford/weave-io/internal/schema"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Dir      string // CUE schema directory; empty uses the configured dir
	Singular bool   // require a singular path
	Factor   string // attribute to locate
}

// SchemaSummary lists the hierarchies of a schema.
type SchemaSummary struct {
	Hierarchies []schema.Hierarchy `json:"hierarchies"`
}

func (s SchemaSummary) String() string {
	var b strings.Builder
	for i, h := range s.Hierarchies {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s (%s/%s)", h.Name, h.Singular, h.Plural)
		if h.IDName != "" {
			fmt.Fprintf(&b, " id=%s", h.IDName)
		}
		if len(h.Factors) > 0 {
			fmt.Fprintf(&b, " factors=%s", strings.Join(h.Factors, ","))
		}
		for _, p := range h.Parents {
			fmt.Fprintf(&b, "\n  <- %s [%d..%s]", p.Name, p.Min, maxString(p.Max))
			if p.One2One {
				b.WriteString(" one2one")
			}
		}
	}
	return b.String()
}

func maxString(n int) string {
	if n == schema.Unbounded {
		return "*"
	}
	return fmt.Sprint(n)
}

// PathResult is a resolved route between two objects.
type PathResult struct {
	schema.Path
}

func (p PathResult) String() string {
	card := "many"
	if p.Singular {
		card = "one"
	}
	dir := "down"
	if p.Upward {
		dir = "up"
	}
	return fmt.Sprintf("%s->%s (%s, %s)", p.From, strings.Join(p.Hops, "->"), card, dir)
}

// FactorResult names the hierarchy owning an attribute.
type FactorResult struct {
	Factor   string `json:"factor"`
	Owner    string `json:"owner"`
	Singular bool   `json:"singular"`
}

func (f FactorResult) String() string {
	return fmt.Sprintf("%s.%s", f.Owner, f.Factor)
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema [<from> <to>]",
		Short: "Inspect the object hierarchy schema",
		Long: `Load the CUE hierarchy definitions and inspect them.

With no arguments, list every hierarchy with its identifier, factors and
parents. With two object names, print the route the query builder would
traverse between them. With --factor, print the hierarchy that owns an
attribute.

Examples:
  weaveio schema --dir ./schema
  weaveio schema run ob
  weaveio schema obs runs
  weaveio schema spectrum target --singular
  weaveio schema --factor camera`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "CUE schema directory (default from config)")
	cmd.Flags().BoolVar(&opts.Singular, "singular", false, "require the route to yield one object")
	cmd.Flags().StringVar(&opts.Factor, "factor", "", "locate the hierarchy owning an attribute")

	return cmd
}

func runSchema(opts *SchemaOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	dir := opts.Dir
	if dir == "" {
		dir = opts.config().Schema.Dir
	}
	s, err := schema.Load(dir)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeSchema, err.Error(), nil)
	}
	formatter.VerboseLog("Loaded %d hierarchies from %s", len(s.Names()), dir)

	switch {
	case opts.Factor != "":
		owner, singular, err := s.FactorOwner(opts.Factor)
		if err != nil {
			return formatter.fail(ExitFailure, ErrCodeSchema, err.Error(), nil)
		}
		name, err := s.FactorName(opts.Factor)
		if err != nil {
			return formatter.fail(ExitFailure, ErrCodeSchema, err.Error(), nil)
		}
		return formatter.Success(FactorResult{Factor: name, Owner: owner, Singular: singular})

	case len(args) == 2:
		path, err := s.PathBetween(args[0], args[1], opts.Singular)
		if err != nil {
			return formatter.fail(ExitFailure, ErrCodeSchema, err.Error(), pathErrorDetails(err))
		}
		return formatter.Success(PathResult{path})

	default:
		summary := SchemaSummary{}
		for _, name := range s.Names() {
			h, _ := s.Hierarchy(name)
			summary.Hierarchies = append(summary.Hierarchies, *h)
		}
		return formatter.Success(summary)
	}
}

// pathErrorDetails exposes the candidate routes of an ambiguous path.
func pathErrorDetails(err error) any {
	var ae *schema.AmbiguousPathError
	if errors.As(err, &ae) {
		return map[string]any{"paths": ae.Paths}
	}
	return nil
}
