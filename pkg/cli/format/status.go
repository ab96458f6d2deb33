package format

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/fabricsync/fabricsync/pkg/types"
)

// Styles for terminal error reporting.
var (
	ErrorColor   = color.New(color.FgRed, color.Bold)
	WarningColor = color.New(color.FgYellow, color.Bold)
	SuccessColor = color.New(color.FgGreen, color.Bold)
	HintColor    = color.New(color.FgYellow, color.Italic)
	HeadingColor = color.New(color.FgHiWhite, color.Bold)
)

// PTermStatusLabel returns a pterm-styled status string for table cells.
func PTermStatusLabel(status string) string {
	switch status {
	case "valid", "verified", "applied", "success", "active":
		return pterm.FgGreen.Sprint(status)
	case "expected", "limited", "pending", "review":
		return pterm.FgYellow.Sprint(status)
	case "failed", "error", "invalid", "unexpected", "locked":
		return pterm.FgRed.Sprint(status)
	default:
		return status
	}
}

// OpLabel returns a colorized delta operation for table cells.
func OpLabel(op types.DeltaOp) string {
	switch op {
	case types.OpCreate:
		return pterm.FgGreen.Sprint("create")
	case types.OpUpdate:
		return pterm.FgYellow.Sprint("update")
	case types.OpDelete:
		return pterm.FgRed.Sprint("delete")
	default:
		return pterm.FgGray.Sprint(string(op))
	}
}

// ClassificationLabel renders an endpoint failure classification with the
// severity color the probe logs use.
func ClassificationLabel(failure *types.FailureClassification) string {
	if failure == nil {
		return pterm.FgGreen.Sprint("ok")
	}
	switch {
	case failure.Expected:
		return pterm.FgYellow.Sprint(string(failure.Kind))
	case failure.Warning:
		return pterm.FgYellow.Sprint(string(failure.Kind))
	default:
		return pterm.FgRed.Sprint(string(failure.Kind))
	}
}

// PrintFatal renders a fatal error with a category heading and, where the
// error type suggests one, a recovery hint.
func PrintFatal(err error) {
	switch {
	case types.IsConnectivityError(err):
		ErrorColor.Println("× CONNECTIVITY FAILURE")
		fmt.Printf("  %s\n", err)
		HintColor.Println("  Hint: check the controller address, network reachability and TLS trust (--ca-file or --insecure-skip-verify).")
	case types.IsAuthenticationError(err):
		ErrorColor.Println("× AUTHENTICATION FAILURE")
		fmt.Printf("  %s\n", err)
		HintColor.Println("  Hint: update stored credentials with 'fabricsync credentials save' or pass --username/--token.")
	case types.IsValidationError(err):
		ErrorColor.Println("× VALIDATION FAILURE")
		fmt.Printf("  %s\n", err)
	default:
		ErrorColor.Println("× FAILED")
		fmt.Printf("  %s\n", err)
	}
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	SuccessColor.Println(message)
}
