package cmd

import (
	"github.com/spf13/cobra"

	"azpim/internal/workflow"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the Azure resource roles you are eligible to activate",
		Long: `List signs you in and prints every eligible role assignment for your
account, grouped by the Azure resource (subscription) it applies to.

Use the resource names shown here with 'azpim activate -s' or the
first four characters with 'azpim activate -n'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.newLogger(cmd)
			wf, err := opts.factory(cmd, opts.cfg, logger)
			if err != nil {
				return err
			}
			return RunListCommand(cmd, wf, effectiveTenant(tenantID, opts.cfg.TenantID))
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant-id", "t", "", "tenant ID in which the Azure subscriptions exist (env: AZPIM_TENANT_ID, TENANT_ID)")

	return cmd
}

// RunListCommand fetches and prints the caller's eligible roles
func RunListCommand(cmd *cobra.Command, wf *workflow.Workflow, tenantID string) error {
	result, err := wf.List(cmd.Context(), tenantID)
	if err != nil {
		return err
	}

	if len(result.Resources) == 0 {
		cmd.Printf("No eligible role assignments found for %s\n", result.Subject.Email)
		return nil
	}

	cmd.Printf("Eligible role assignments for %s:\n", result.Subject.Email)
	for _, resource := range result.Resources {
		cmd.Printf("%s\n", resource.ResourceName)
		for _, role := range resource.Roles {
			cmd.Printf("\t%s\n", role)
		}
	}
	return nil
}

// effectiveTenant prefers the flag over the configured tenant
func effectiveTenant(flagValue, configured string) string {
	if flagValue != "" {
		return flagValue
	}
	return configured
}
