package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cigroups/internal/credentials"
	"cigroups/pkg/cli/render"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != render.FormatTable && output != render.FormatJSON {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// required pairs a flag name with its resolved value.
type required struct {
	flag  string
	value string
}

// checkRequired prints an instruction naming every empty required flag and
// reports whether all of them were given.
func checkRequired(cmd *cobra.Command, reqs ...required) bool {
	var missing []string
	for _, r := range reqs {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, "--"+r.flag)
		}
	}
	if len(missing) == 0 {
		return true
	}
	_, _ = fmt.Fprintf(os.Stdout, "Missing required flag(s): %s\nRun '%s --help' for usage.\n",
		strings.Join(missing, ", "), cmd.CommandPath())
	return false
}

// report renders a command failure on stdout and swallows it, except for
// credential problems which abort the process.
func (a *app) report(err error) error {
	if credentials.IsFatal(err) {
		return err
	}
	a.logger.Debug("command failed", "error", err)
	render.PrintError(os.Stdout, err)
	return nil
}

// printOne renders a single resource as a one-row table.
func (a *app) printOne(v any) error {
	r, err := render.FromValue(v)
	if err != nil {
		return a.report(err)
	}
	return render.PrintRecords(os.Stdout, a.output, []*render.Record{r})
}

// printEmpty reports an empty listing.
func (a *app) printEmpty(what string) error {
	if a.output == render.FormatJSON {
		return render.PrintJSON(os.Stdout, []any{})
	}
	_, _ = fmt.Fprintf(os.Stdout, "No %s found\n", what)
	return nil
}
