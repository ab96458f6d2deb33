package credentials

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/fabricsync/fabricsync/pkg/types"
)

// PromptCredential interactively collects a username and password for a
// controller. The password is read without echo.
func PromptCredential(controller string) (*types.Credential, error) {
	fmt.Printf("Credentials for %s\n", controller)

	fmt.Print("Username: ")
	reader := bufio.NewReader(os.Stdin)
	username, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, types.NewValidationError("username must not be empty")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return nil, types.NewValidationError("password must not be empty")
	}

	return &types.Credential{
		Username: username,
		Password: string(password),
		Scheme:   types.SchemeBasic,
	}, nil
}
