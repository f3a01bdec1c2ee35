package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bamford/weave-io/internal/harness"
	"github.com/bamford/weave-io/internal/queryir"
)

// ValidationResult holds the outcome of validating one scenario graph.
type ValidationResult struct {
	Scenario string          `json:"scenario"`
	Valid    bool            `json:"valid"`
	Nodes    int             `json:"nodes"`
	Edges    int             `json:"edges"`
	Issues   []queryir.Issue `json:"issues,omitempty"`
	Graph    string          `json:"graph,omitempty"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "✓ %s: graph valid (%d nodes, %d edges)", r.Scenario, r.Nodes, r.Edges)
	} else {
		fmt.Fprintf(&b, "✗ %s: %d issue(s) (%d nodes, %d edges)", r.Scenario, len(r.Issues), r.Nodes, r.Edges)
	}
	if r.Graph != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(r.Graph, "\n"))
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Check a scenario graph without compiling it",
		Long: `Build the query graph described by a scenario file and check its
structural invariants: a single start node, no orphan nodes, an acyclic
dependency graph, exactly one wrt edge per aggregation pointing at a
strict ancestor, and no filter applied to an operation.

Faster than compile for authoring feedback, and reports every problem
rather than the first. With --verbose the graph dump is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeScenario, err.Error(), nil)
	}

	g, _, err := harness.Build(scenario)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeBuild, err.Error(), nil)
	}

	result := ValidationResult{
		Scenario: scenario.Name,
		Nodes:    g.NumNodes(),
		Edges:    g.NumEdges(),
		Issues:   g.Validate(),
	}
	result.Valid = len(result.Issues) == 0
	if opts.Verbose {
		result.Graph = g.Dump()
	}

	if !result.Valid {
		message := fmt.Sprintf("%s: %d issue(s)", scenario.Name, len(result.Issues))
		if err := formatter.Error(ErrCodeInvalid, message, result); err != nil {
			return err
		}
		if formatter.Format != "json" {
			for _, issue := range result.Issues {
				fmt.Fprintf(formatter.Writer, "  n%d %s\n", issue.Node, issue)
			}
		}
		return NewExitError(ExitFailure, message)
	}
	return formatter.Success(result)
}
