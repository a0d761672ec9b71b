package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/session"
	"github.com/spf13/cobra"
)

var loginFlags struct {
	owner         string
	email         string
	passwordStdin bool
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the farm calendar",
	Long: `Sign in with your gatekeeper account. The access token is kept under the
owner profile and used by 'farmwiz run' and by MCP calls for the same owner.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and discard saved wizard progress",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVarP(&loginFlags.owner, "owner", "o", defaultOwner(), "Profile to sign in")
	loginCmd.Flags().StringVarP(&loginFlags.email, "email", "e", "", "Account email")
	loginCmd.Flags().BoolVar(&loginFlags.passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = loginCmd.MarkFlagRequired("email")

	logoutCmd.Flags().StringVarP(&loginFlags.owner, "owner", "o", defaultOwner(), "Profile to sign out")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	password, err := readPassword(cmd.InOrStdin(), loginFlags.passwordStdin)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	token, err := a.api.Login(ctx, loginFlags.email, password)
	if err != nil {
		var apiErr *farmapi.APIError
		if errors.As(err, &apiErr) {
			return errors.New("login failed: check your email and password")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	session.SignIn(ctx, a.store, loginFlags.owner, farmapi.Identity{Email: loginFlags.email, Token: token})
	fmt.Printf("Signed in as %s.\n", loginFlags.email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	session.SignOut(ctx, a.store, loginFlags.owner, a.flows.Keys())
	fmt.Println("Signed out.")
	return nil
}

// readPassword reads one line from in when fromStdin is set, otherwise
// prompts on the terminal without echo.
func readPassword(in io.Reader, fromStdin bool) (string, error) {
	if fromStdin || !term.IsTerminal(os.Stdin.Fd()) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return "", errors.New("empty password")
		}
		return line, nil
	}

	fmt.Print("Password: ")
	b, err := term.ReadPassword(os.Stdin.Fd())
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("empty password")
	}
	return string(b), nil
}
