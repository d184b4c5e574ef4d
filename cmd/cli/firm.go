package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/advisorhub/internal/app"
	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/pkg/constants"
)

// firmCmd groups firm provisioning commands.
var firmCmd = &cobra.Command{
	Use:   "firm",
	Short: "Provision firms and change their plans",
}

var firmCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a firm on an active plan together with its first admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &dto.CreateFirmRequest{}
		req.Name, _ = cmd.Flags().GetString("name")
		plan, _ := cmd.Flags().GetString("plan")
		req.Plan = constants.SubscriptionPlan(plan)
		req.AdminEmail, _ = cmd.Flags().GetString("admin-email")
		req.AdminName, _ = cmd.Flags().GetString("admin-name")
		req.AdminPassword, _ = cmd.Flags().GetString("admin-password")
		if req.AdminPassword == "" {
			req.AdminPassword = os.Getenv("ADVISORHUB_ADMIN_PASSWORD")
		}

		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			resp, err := c.Services.Firm.CreateFirm(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created firm %s (%s) on plan %s\n",
				resp.Firm.Name, resp.Firm.ID, resp.Subscription.Plan)
			return nil
		})
	},
}

var firmSetPlanCmd = &cobra.Command{
	Use:   "set-plan <firm-id-or-slug> <plan>",
	Short: "Move a firm to another plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := parsePlan(args[1])
		if err != nil {
			return err
		}
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			sub, err := c.Services.Firm.SetPlan(ctx, args[0], plan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "firm %s is now on %s (%s) until %s\n",
				sub.FirmID, sub.Plan, sub.Status, sub.CurrentPeriodEnd.Format("2006-01-02"))
			return nil
		})
	},
}

// parsePlan accepts the commercial plan names only; trial is granted by registration.
func parsePlan(name string) (constants.SubscriptionPlan, error) {
	switch plan := constants.SubscriptionPlan(name); plan {
	case constants.PlanStarter, constants.PlanProfessional, constants.PlanEnterprise:
		return plan, nil
	default:
		return "", fmt.Errorf("unknown plan %q (want starter, professional or enterprise)", name)
	}
}

func init() {
	firmCreateCmd.Flags().String("name", "", "firm name")
	firmCreateCmd.Flags().String("plan", string(constants.PlanStarter), "subscription plan")
	firmCreateCmd.Flags().String("admin-email", "", "email of the first firm admin")
	firmCreateCmd.Flags().String("admin-name", "", "full name of the first firm admin")
	firmCreateCmd.Flags().String("admin-password", "", "initial password (default $ADVISORHUB_ADMIN_PASSWORD)")
	_ = firmCreateCmd.MarkFlagRequired("name")
	_ = firmCreateCmd.MarkFlagRequired("admin-email")
	_ = firmCreateCmd.MarkFlagRequired("admin-name")

	firmCmd.AddCommand(firmCreateCmd, firmSetPlanCmd)
	rootCmd.AddCommand(firmCmd)
}

//Personal.AI order the ending
