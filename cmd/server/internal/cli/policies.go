package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/internal/config"
	"github.com/j4b6ski/oioioi/internal/exiterr"
	"github.com/j4b6ski/oioioi/internal/logger"
	"github.com/j4b6ski/oioioi/internal/policy"
)

var ErrInvalidBindings = errors.New("invalid policy bindings")

// Binding assigns a rule-set to a contest
type Binding struct {
	Policy    string
	ContestID uuid.UUID
}

type bindingsFile struct {
	Contests map[string]string `yaml:"contests"`
}

// LoadBindings parses a bindings file and checks every entry against the
// registry. Every problem is reported, not only the first.
//
//	contests:
//	  0190a4c2-...: acm
func LoadBindings(r *policy.Registry, raw []byte) ([]Binding, error) {
	var file bindingsFile
	if err := yaml.UnmarshalStrict(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBindings, err)
	}
	if len(file.Contests) == 0 {
		return nil, fmt.Errorf("%w: no contests bound", ErrInvalidBindings)
	}

	var errs []error
	bindings := make([]Binding, 0, len(file.Contests))
	for rawID, name := range file.Contests {
		id, err := uuid.Parse(rawID)
		if err != nil {
			errs = append(errs, fmt.Errorf("contest %q: not a uuid", rawID))
			continue
		}
		if !r.Has(name) {
			errs = append(errs, fmt.Errorf("contest %s: unknown policy %q", id, name))
			continue
		}
		bindings = append(bindings, Binding{ContestID: id, Policy: name})
	}
	if len(errs) > 0 {
		slices.SortFunc(errs, func(a, b error) int { return strings.Compare(a.Error(), b.Error()) })
		return nil, fmt.Errorf("%w: %w", ErrInvalidBindings, errors.Join(errs...))
	}

	slices.SortFunc(bindings, func(a, b Binding) int {
		return strings.Compare(a.ContestID.String(), b.ContestID.String())
	})
	return bindings, nil
}

// Prints every rule-set with the mixins it is composed of
func listPolicies(cmd *cobra.Command, r *policy.Registry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "NAME\tMIXINS"); err != nil {
		return err
	}
	for _, name := range r.Names() {
		mixins, err := r.MixinsOf(name)
		if err != nil {
			return fmt.Errorf("failed to list mixins of %q: %w", name, err)
		}
		display := "-"
		if len(mixins) > 0 {
			display = strings.Join(mixins, ",")
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", name, display); err != nil {
			return err
		}
	}
	return w.Flush()
}

func newPoliciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect and assign contest rule-sets",
	}

	var dryRun bool
	bind := &cobra.Command{
		Use:   "bind <bindings.yaml>",
		Short: "Assign rule-sets to contests from a bindings file",
		Long: "Assign rule-sets to contests from a bindings file. A contest that " +
			"already has submissions keeps its rule-set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return exiterr.Wrap(exiterr.CodeUsage, fmt.Errorf("failed to read bindings: %w", err))
			}

			registry := policy.Builtin()
			bindings, err := LoadBindings(registry, raw)
			if err != nil {
				return exiterr.Wrap(exiterr.CodeUsage, err)
			}
			if dryRun {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d bindings valid\n", len(bindings))
				return err
			}

			return withDB(cmd.Context(), "bindPolicies",
				func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
					var errs []error
					for _, b := range bindings {
						err := models.UpdateContestPolicy(ctx, db, b.ContestID, b.Policy)
						if err != nil {
							logger.Logger.ErrorContext(ctx, "failed to bind policy",
								"contest_id", b.ContestID.String(),
								"policy", b.Policy,
								"error", err,
							)
							errs = append(errs, fmt.Errorf("contest %s: %w", b.ContestID, err))
							continue
						}
						logger.Logger.InfoContext(ctx, "bound policy",
							"contest_id", b.ContestID.String(),
							"policy", b.Policy,
						)
					}
					return errors.Join(errs...)
				})
		},
	}
	bind.Flags().BoolVar(&dryRun, "dry-run", false, "Only validate the bindings file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the available rule-sets",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listPolicies(cmd, policy.Builtin())
			},
		},
		bind,
	)
	return cmd
}
