package cli

import (
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/api/cloudidentity/v1"

	"cigroups/internal/groups"
	"cigroups/pkg/cli/render"
)

const expiryHelp = `Expiration of the membership as either a Unix timestamp or a date string such as "Nov 30 2019 23:59:59"`

func newMembershipsCreateCmd(a *app) *cobra.Command {
	var m groups.NewMembership

	cmd := &cobra.Command{
		Use:   "memberships.create",
		Short: "Add a member to a group",
		Long: "Add a member to a group with the MEMBER role and an optional expiry.\n" +
			"The created membership is fetched again and printed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !checkRequired(cmd,
				required{"name", m.Group},
				required{"member", m.Member},
			) {
				return nil
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			membership, err := svc.CreateMembership(cmd.Context(), m)
			if err != nil {
				return a.report(err)
			}
			return a.printOne(membership)
		},
	}

	cmd.Flags().StringVar(&m.Group, "name", "", "The unique name identifier for the group (not its display name)")
	cmd.Flags().StringVar(&m.Member, "member", "", "The email address of the member to add (the member must already exist)")
	cmd.Flags().StringVar(&m.Expiry, "expiry", "", expiryHelp)

	return cmd
}

func newMembershipsGetCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "memberships.get",
		Short: "Get a membership",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !checkRequired(cmd, required{"name", name}) {
				return nil
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			membership, err := svc.GetMembership(cmd.Context(), name)
			if err != nil {
				return a.report(err)
			}
			return a.printOne(membership)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "The membership name, e.g. groups/abc/memberships/123")

	return cmd
}

func newMembershipsListCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "memberships.list",
		Short: "List the memberships of a group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !checkRequired(cmd, required{"name", name}) {
				return nil
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			list, err := svc.ListMemberships(cmd.Context(), name)
			if err != nil {
				return a.report(err)
			}
			if len(list) == 0 {
				return a.printEmpty("memberships")
			}
			records, err := membershipRecords(list)
			if err != nil {
				return a.report(err)
			}
			return render.PrintRecords(os.Stdout, a.output, records)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "The unique name identifier for the group (not its display name)")

	return cmd
}

// membershipRecords adds an expireTime column taken from the role expiry.
// The first record always carries it so the table header includes it.
func membershipRecords(list []*cloudidentity.Membership) ([]*render.Record, error) {
	records := make([]*render.Record, 0, len(list))
	for i, m := range list {
		r, err := render.FromValue(m)
		if err != nil {
			return nil, err
		}
		if exp := groups.ExpireTime(m); exp != "" || i == 0 {
			if err := r.Set("expireTime", exp); err != nil {
				return nil, err
			}
		}
		records = append(records, r)
	}
	return records, nil
}

func newMembershipsExpireCmd(a *app) *cobra.Command {
	var (
		name      string
		expiry    string
		noRefetch bool
	)

	cmd := &cobra.Command{
		Use:   "memberships.expire",
		Short: "Set an expiry on a membership",
		Long: "Set the expiry of a membership's MEMBER role. Only the expiry field is updated.\n" +
			"The membership is fetched again unless --no-refetch is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !checkRequired(cmd,
				required{"name", name},
				required{"expiry", expiry},
			) {
				return nil
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			membership, err := svc.ExpireMembership(cmd.Context(), name, expiry, !noRefetch)
			if err != nil {
				return a.report(err)
			}
			return a.printOne(membership)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "The full membership name, e.g. groups/abc123/memberships/789xyz")
	cmd.Flags().StringVar(&expiry, "expiry", "", expiryHelp)
	cmd.Flags().BoolVar(&noRefetch, "no-refetch", false, "Print the membership returned by the update instead of fetching it again")

	return cmd
}
