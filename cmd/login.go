package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/chxlky/kanban-sync/integrations"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange a username and password for an API token",
	Long: `Posts the credentials to the API's /login/ endpoint and prints the access
token, ready to be stored as remote.token or KANBAN_REMOTE_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username := loginUsername
		if username == "" {
			username = cfg.Remote.Username
		}
		if username == "" {
			return errors.New("no username: pass --username or set remote.username")
		}

		password := cfg.Remote.Password
		if password == "" {
			var err error
			password, err = readPassword(cmd)
			if err != nil {
				return err
			}
		}

		src := &integrations.LoginTokenSource{
			Client:   &http.Client{Timeout: cfg.Remote.Timeout},
			BaseURL:  cfg.Remote.BaseURL,
			Username: username,
			Password: password,
		}
		token, err := src.Token()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Account name (defaults to remote.username)")
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
