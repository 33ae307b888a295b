package cmd

import (
	"github.com/spf13/cobra"

	"azpim/internal/resolve"
	"azpim/internal/workflow"
)

type activateFlags struct {
	tenantID           string
	subscriptionName   string
	subscriptionNumber string
	roleType           string
	reason             string
	duration           int
}

func newActivateCmd(opts *rootOptions) *cobra.Command {
	var flags activateFlags

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate an eligible role assignment",
		Long: `Activate finds the single eligible role assignment matching the given
filters and requests its activation through Azure PIM.

The subscription can be selected by name (-s, any part of the resource
display name) or by number (-n, the first four characters of the resource
display name, e.g. 'S398'). When a subscription carries several eligible
roles, add -r to pick one by role name (e.g. 'Owner' or 'Contributor').

Matching is case-insensitive. Nothing is activated unless exactly one
assignment matches.`,
		Example: `  azpim activate -t <tenant-id> -n S398
  azpim activate -s production -r Owner --duration 60 --reason "incident 4711"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("reason") {
				cfg.Reason = flags.reason
			}
			if cmd.Flags().Changed("duration") {
				cfg.DurationMinutes = flags.duration
				if err := validate(cfg); err != nil {
					return err
				}
			}

			logger := opts.newLogger(cmd)
			wf, err := opts.factory(cmd, cfg, logger)
			if err != nil {
				return err
			}

			return RunActivateCommand(cmd, wf, workflow.ActivateInput{
				TenantID: effectiveTenant(flags.tenantID, cfg.TenantID),
				Filter: resolve.Filter{
					SubscriptionName:   flags.subscriptionName,
					SubscriptionNumber: flags.subscriptionNumber,
					RoleType:           flags.roleType,
				},
			})
		},
	}

	cmd.Flags().StringVarP(&flags.tenantID, "tenant-id", "t", "", "tenant ID in which the Azure subscription exists (env: AZPIM_TENANT_ID, TENANT_ID)")
	cmd.Flags().StringVarP(&flags.subscriptionName, "subscription-name", "s", "", "name (or part of the name) of the subscription to activate")
	cmd.Flags().StringVarP(&flags.subscriptionNumber, "subscription-number", "n", "", "number (name prefix) of the subscription to activate, e.g. 'S398'")
	cmd.Flags().StringVarP(&flags.roleType, "role-type", "r", "", "role to activate when several are eligible, e.g. 'Owner' or 'Contributor'")
	cmd.Flags().StringVar(&flags.reason, "reason", "", "justification sent with the activation request (env: AZPIM_REASON)")
	cmd.Flags().IntVar(&flags.duration, "duration", 0, "activation duration in minutes, default 480 (env: AZPIM_DURATION)")

	return cmd
}

// RunActivateCommand activates the matching assignment and prints the outcome
func RunActivateCommand(cmd *cobra.Command, wf *workflow.Workflow, input workflow.ActivateInput) error {
	outcome, err := wf.Activate(cmd.Context(), input)
	if err != nil {
		return err
	}

	cmd.Printf("Role '%s' is now %s\n", outcome.Assignment.ResourceName(), outcome.Result.AssignmentState)
	if expires := outcome.Result.ExpiresAt(); expires != "" {
		cmd.Printf("\tThe role activation expires at %s\n", expires)
	} else if outcome.Result.Status != nil {
		cmd.Printf("\tThe activation request status is %s\n", outcome.Result.Status.Status)
	}
	return nil
}
