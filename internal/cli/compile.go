package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bamford/weave-io/internal/compiler"
	"github.com/bamford/weave-io/internal/harness"
	"github.com/bamford/weave-io/internal/ir"
	"github.com/bamford/weave-io/internal/queryir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Database string // statement store; empty uses the configured path
	Output   string // file to write the statement text to
}

// CompileResult is the payload of a successful compile.
type CompileResult struct {
	Scenario         string      `json:"scenario"`
	GraphFingerprint string      `json:"graph_fingerprint"`
	Cached           bool        `json:"cached"`
	Fragments        []string    `json:"fragments"`
	Params           ir.IRObject `json:"params,omitempty"`
	Returns          string      `json:"returns"`
	Checkpoints      int         `json:"checkpoints"`
	Text             string      `json:"text"`
}

func (r CompileResult) String() string {
	return r.Text
}

// CompileFailure is the error detail of a failed compile.
type CompileFailure struct {
	Code  string         `json:"code"`
	Node  queryir.NodeID `json:"node,omitempty"`
	Graph string         `json:"graph,omitempty"`
}

func (f CompileFailure) String() string {
	if f.Graph == "" {
		return f.Code
	}
	return f.Code + "\n" + strings.TrimRight(f.Graph, "\n")
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <scenario.yaml>",
		Short: "Compile a query scenario to Cypher",
		Long: `Build the query graph described by a scenario file and compile it
into ordered Cypher fragments.

With --db the statement is recorded in a SQLite store, and a graph that
was compiled before is answered from the store.

Exit codes:
  0 - Statement compiled
  1 - The graph cannot be compiled
  2 - Command error (unreadable scenario, store failure)

Examples:
  weaveio compile scenarios/checkpoint.yaml
  weaveio compile scenarios/checkpoint.yaml --db weaveio.db
  weaveio compile scenarios/checkpoint.yaml -o query.cypher --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite statement store")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the statement text to a file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeScenario, err.Error(), nil)
	}
	formatter.VerboseLog("Loaded scenario %s with %d op(s)", scenario.Name, len(scenario.Ops))

	h, closeStore, err := opts.newHarness(opts.dbPath(opts.Database))
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer closeStore()

	result, err := h.Run(cmd.Context(), scenario)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	if result.Err != nil {
		return compileFailed(formatter, result.Err)
	}

	stmt := result.Statement
	out := CompileResult{
		Scenario:         scenario.Name,
		GraphFingerprint: result.GraphFingerprint,
		Cached:           result.Cached,
		Fragments:        stmt.Fragments,
		Params:           ir.IRObject(stmt.Params),
		Returns:          stmt.Returns,
		Checkpoints:      result.Plan.Checkpoints,
		Text:             stmt.Text(),
	}
	if result.Cached {
		formatter.VerboseLog("Statement for %s found in store", result.GraphFingerprint)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(out.Text+"\n"), 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		formatter.VerboseLog("Wrote statement to %s", opts.Output)
	}
	return formatter.Success(out)
}

// compileFailed reports a build or structural error with its code.
func compileFailed(formatter *OutputFormatter, err error) error {
	detail := CompileFailure{Code: harness.ErrorCode(err)}
	errCode := ErrCodeCompile

	var se *compiler.StructuralError
	var be *queryir.BuildError
	switch {
	case errors.As(err, &se):
		detail.Node = se.Node
		detail.Graph = se.Graph
	case errors.As(err, &be):
		errCode = ErrCodeBuild
		detail.Node = be.Node
	default:
		errCode = ErrCodeBuild
	}
	return formatter.fail(ExitFailure, errCode, err.Error(), detail)
}

// newHarness returns a harness using the configured compiler, recording into
// the store at dbPath when it is set. The returned func closes the store.
func (o *RootOptions) newHarness(dbPath string) (*harness.Harness, func(), error) {
	hopts := []harness.Option{
		harness.WithCompiler(o.newCompiler()),
		harness.WithLogger(o.logger()),
	}
	if dbPath == "" {
		return harness.New(hopts...), func() {}, nil
	}
	st, err := o.openStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store %s: %w", dbPath, err)
	}
	hopts = append(hopts, harness.WithStore(st))
	return harness.New(hopts...), func() { st.Close() }, nil
}
