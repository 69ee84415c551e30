package auth

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zenGate-Global/studio-scheduler/platform/go/auth/devtoken"
)

func devTokenCommand() *cobra.Command {
	var params devtoken.Params
	var capabilities []string
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Generate an unsigned Firebase-compatible JWT for dev/local use",
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Capabilities = capabilities
			params.ExpiresIn = expiresIn

			token, err := devtoken.BuildUnsignedFirebaseToken(params, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	// Required claims
	cmd.Flags().StringVar(&params.ProjectID, "project-id", "", "Firebase project ID (iss/aud)")
	cmd.Flags().StringVar(&params.Tenant, "tenant", "", "firebase.tenant claim: tenant id or slug (omit for platform operators)")
	cmd.Flags().StringVar(&params.UserID, "user-id", "", "user_id/sub/uid claim")
	cmd.Flags().StringVar(&params.Email, "email", "", "email claim")

	// Optional claims
	cmd.Flags().StringVar(&params.Name, "name", "", "display name")
	cmd.Flags().BoolVar(&params.EmailVerified, "email-verified", true, "email_verified claim")
	cmd.Flags().BoolVar(&params.IsAdmin, "admin", false, "set isAdmin=true")
	cmd.Flags().StringVar(&params.Role, "role", "", "role claim (ADMIN, STAFF, CLIENT, AGENT, CREW)")
	cmd.Flags().StringVar(&params.ClientID, "client-id", "", "clientId claim for CLIENT viewers")
	cmd.Flags().StringVar(&params.AgentID, "agent-id", "", "agentId claim for AGENT viewers")
	cmd.Flags().StringVar(&params.CrewMemberID, "crew-member-id", "", "crewMemberId claim for CREW viewers")
	cmd.Flags().StringSliceVar(&capabilities, "capabilities", nil, "capabilities claim (comma-separated, e.g. platform:cross-tenant)")
	cmd.Flags().StringVar(&params.FirebaseSignInProvider, "sign-in-provider", "password", "firebase.sign_in_provider claim")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "token lifetime (e.g. 30m, 2h)")
	cmd.Flags().StringVar(&params.Audience, "audience", "", "override aud; defaults to project-id")
	cmd.Flags().StringVar(&params.Issuer, "issuer", "", "override iss; defaults to securetoken URL")

	_ = cmd.MarkFlagRequired("project-id")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
