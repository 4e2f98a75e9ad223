package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type credentialFlags struct {
	user string
	pass string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&f.pass, "pass", "", "Password (prompted for if omitted)")
	_ = cmd.MarkFlagRequired("user")
}

func (f *credentialFlags) request(cmd *cobra.Command) (map[string]string, error) {
	pass := f.pass
	if pass == "" {
		var err error
		if pass, err = promptPassword(cmd); err != nil {
			return nil, err
		}
	}
	return map[string]string{"username": f.user, "password": pass}, nil
}

func newSignupCmd() *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := creds.request(cmd)
			if err != nil {
				return err
			}

			var result AuthResult
			if err := client.Post("/signup", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}

	creds.register(cmd)
	return cmd
}

func newLoginCmd() *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := creds.request(cmd)
			if err != nil {
				return err
			}

			var result AuthResult
			if err := client.Post("/login", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			if cfg.Verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "Token saved to %s\n", cfg.TokenFile)
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}

	creds.register(cmd)
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session and forget the saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AuthResult
			if err := client.Post("/logout", nil, &result); err != nil {
				return err
			}

			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}
