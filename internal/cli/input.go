package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readTerminalPassword is a test seam for term.ReadPassword
var readTerminalPassword = term.ReadPassword

// promptPassword reads a password for commands run without --pass.
// On a terminal the input is not echoed; otherwise the first line of stdin is used,
// so `echo secret | fitctl login --user alice` works in scripts.
func promptPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := readTerminalPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return requirePassword(string(pw))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return requirePassword(strings.TrimRight(line, "\r\n"))
}

func requirePassword(pw string) (string, error) {
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}
