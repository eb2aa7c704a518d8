package cli

import (
	"os"

	"github.com/spf13/cobra"

	"cigroups/internal/groups"
	"cigroups/pkg/cli/render"
)

func newGroupsCreateCmd(a *app) *cobra.Command {
	var g groups.NewGroup

	cmd := &cobra.Command{
		Use:   "groups.create",
		Short: "Create a group",
		Long: "Create a discussion-forum group under a customer. The caller becomes its initial owner.\n" +
			"The created group is fetched again and printed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.CustomerID == "" {
				g.CustomerID = a.customerID
			}
			if !checkRequired(cmd,
				required{"customer_id", g.CustomerID},
				required{"key", g.Key},
			) {
				return nil
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			group, err := svc.CreateGroup(cmd.Context(), g)
			if err != nil {
				return a.report(err)
			}
			return a.printOne(group)
		},
	}

	cmd.Flags().StringVar(&g.CustomerID, "customer_id", "", "Your customer ID")
	cmd.Flags().StringVar(&g.Key, "key", "", "Unique key for the group in email address format")
	cmd.Flags().StringVar(&g.DisplayName, "display_name", "", "A display name for the group")
	cmd.Flags().StringVar(&g.Description, "description", "", "A description for the group")

	return cmd
}

func newGroupsGetCmd(a *app) *cobra.Command {
	var name, key string

	cmd := &cobra.Command{
		Use:   "groups.get",
		Short: "Get a group by name or key",
		Long: "Get a group by its resource name (groups/...) or by its key. With only a key the\n" +
			"group name is looked up first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" && key == "" {
				return a.report(groups.ErrNameOrKey)
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			group, err := svc.GetGroup(cmd.Context(), name, key)
			if err != nil {
				return a.report(err)
			}
			return a.printOne(group)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "The unique name identifier for the group (not its display name)")
	cmd.Flags().StringVar(&key, "key", "", "Unique key for the group in email address format")

	return cmd
}

func newGroupsListCmd(a *app) *cobra.Command {
	var (
		customerID string
		pageSize   int64
	)

	cmd := &cobra.Command{
		Use:   "groups.list",
		Short: "List discussion-forum groups of a customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if customerID == "" {
				customerID = a.customerID
			}
			if !checkRequired(cmd, required{"customer_id", customerID}) {
				return nil
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			list, err := svc.ListGroups(cmd.Context(), customerID, pageSize)
			if err != nil {
				return a.report(err)
			}
			if len(list) == 0 {
				return a.printEmpty("groups")
			}
			records, err := render.FromSlice(list)
			if err != nil {
				return a.report(err)
			}
			return render.PrintRecords(os.Stdout, a.output, records)
		},
	}

	cmd.Flags().StringVar(&customerID, "customer_id", "", "Your customer ID")
	cmd.Flags().Int64Var(&pageSize, "page_size", groups.DefaultPageSize, "Number of groups to return")

	return cmd
}
