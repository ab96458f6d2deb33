package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabricsync/fabricsync/pkg/cli/format"
	"github.com/fabricsync/fabricsync/pkg/credentials"
	"github.com/fabricsync/fabricsync/pkg/types"
)

var (
	// Credentials command flags
	credController string
	credUsername   string
	credPassword   string
	credToken      string
	credAPIKey     string
)

// credentialsCmd groups credential store management commands
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage stored controller credentials",
	Long: `Manage the encrypted credential store. Credentials are keyed by
controller identity and encrypted at rest. For example:
  fabricsync credentials save --controller nsx01.example.com
  fabricsync credentials show --controller nsx01.example.com
  fabricsync credentials remove --controller nsx01.example.com`,
}

var credentialsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a credential for a controller",
	RunE:  runCredentialsSave,
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored credential identity for a controller",
	RunE:  runCredentialsShow,
}

var credentialsRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the stored credential for a controller",
	RunE:  runCredentialsRemove,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSaveCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
	credentialsCmd.AddCommand(credentialsRemoveCmd)

	credentialsCmd.PersistentFlags().StringVar(&credController, "controller", "", "Controller address (required)")
	credentialsCmd.MarkPersistentFlagRequired("controller")

	credentialsSaveCmd.Flags().StringVar(&credUsername, "username", "", "Username (prompts when omitted)")
	credentialsSaveCmd.Flags().StringVar(&credPassword, "password", "", "Password (discouraged; prompts when omitted)")
	credentialsSaveCmd.Flags().StringVar(&credToken, "token", "", "Bearer token")
	credentialsSaveCmd.Flags().StringVar(&credAPIKey, "api-key", "", "API key")
}

func runCredentialsSave(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	cred, err := credentialFromFlags()
	if err != nil {
		return err
	}
	if cred == nil {
		cred, err = credentials.PromptCredential(credController)
		if err != nil {
			return err
		}
	}

	if err := application.creds.Save(credController, cred); err != nil {
		return err
	}
	format.PrintSuccess(fmt.Sprintf("Credential saved for %s", credentials.ControllerKey(credController)))
	return nil
}

// credentialFromFlags builds a credential from explicit flags, or nil when
// no material was supplied.
func credentialFromFlags() (*types.Credential, error) {
	switch {
	case credToken != "":
		return &types.Credential{Token: credToken, Scheme: types.SchemeBearer}, nil
	case credAPIKey != "":
		return &types.Credential{APIKey: credAPIKey, Scheme: types.SchemeAPIKey}, nil
	case credUsername != "" && credPassword != "":
		return &types.Credential{Username: credUsername, Password: credPassword, Scheme: types.SchemeBasic}, nil
	case credUsername != "":
		prompted, err := credentials.PromptCredential(credController)
		if err != nil {
			return nil, err
		}
		return &types.Credential{Username: credUsername, Password: prompted.Password, Scheme: types.SchemeBasic}, nil
	default:
		return nil, nil
	}
}

func runCredentialsShow(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	cred, err := application.creds.Get(credController)
	if err != nil {
		return err
	}
	if cred == nil {
		fmt.Printf("No stored credential for %s\n", credController)
		return nil
	}

	// identity only, never secret material
	fmt.Println(format.Label("Controller", credentials.ControllerKey(credController)))
	fmt.Println(format.Label("Scheme", string(cred.Scheme)))
	if cred.Username != "" {
		fmt.Println(format.Label("Username", cred.Username))
	}
	if cred.Token != "" {
		fmt.Println(format.Label("Token", "(stored)"))
	}
	if cred.APIKey != "" {
		fmt.Println(format.Label("API key", "(stored)"))
	}
	return nil
}

func runCredentialsRemove(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.creds.Remove(credController); err != nil {
		return err
	}
	format.PrintSuccess(fmt.Sprintf("Credential removed for %s", credentials.ControllerKey(credController)))
	return nil
}
