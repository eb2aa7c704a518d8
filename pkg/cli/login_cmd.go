package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cigroups/internal/credentials"
	"cigroups/internal/login"
	"cigroups/pkg/cli/render"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		listen    []string
		noBrowser bool
		noVerify  bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize the CLI with your Google account",
		Long: "Run the OAuth consent flow in a browser and save the resulting token to the\n" +
			"installation directory. Requires client_secret_oauth.json there.",
		Example: `  # Authorize using the system browser
  cigroups login

  # Print the consent URL instead of opening a browser
  cigroups login --no-browser`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths := credentials.DefaultPaths(a.home)
			cfg := login.Config{
				ClientSecretPath: paths.ClientSecret,
				TokenPath:        paths.Token,
				BindAddress:      listen,
				Logger:           a.logger,
			}
			if !noVerify {
				cfg.Issuer = login.GoogleIssuer
			}
			if noBrowser {
				cfg.OpenBrowser = func(url string) error {
					_, _ = fmt.Fprintf(os.Stderr, "Open the following URL in your browser:\n\n  %s\n\n", url)
					return nil
				}
			}

			res, err := login.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == render.FormatJSON {
				return render.PrintJSON(os.Stdout, map[string]string{
					"status": "ok",
					"email":  res.Email,
					"token":  res.TokenPath,
				})
			}
			if res.Email != "" {
				_, _ = fmt.Fprintf(os.Stdout, "Logged in as %s. Token saved to %s\n", res.Email, res.TokenPath)
				return nil
			}
			_, _ = fmt.Fprintf(os.Stdout, "Token saved to %s\n", res.TokenPath)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&listen, "listen", nil, "Local callback address(es), e.g. 127.0.0.1:8000 (default: a free port)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the consent URL instead of opening a browser")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip ID token verification")

	return cmd
}
