package cmd

import (
	"os"
	"strings"
	"time"
)

type manEntry struct {
	term string
	desc string
}

func writeEntries(content *strings.Builder, entries []manEntry) {
	for _, e := range entries {
		content.WriteString(".TP\n")
		content.WriteString(e.term + "\n")
		content.WriteString(e.desc + "\n")
	}
}

func writeExample(content *strings.Builder, title, command string) {
	content.WriteString(".PP\n")
	content.WriteString(title + "\n")
	content.WriteString(".RS\n")
	content.WriteString("\\fB" + command + "\\fR\n")
	content.WriteString(".RE\n")
}

// GenerateManPage generates the complete man page content in groff format
func GenerateManPage() (string, error) {
	var content strings.Builder

	content.WriteString(".TH AZPIM 1 \"")
	content.WriteString(time.Now().Format("January 2006"))
	content.WriteString("\" \"azpim ")
	content.WriteString(Version)
	content.WriteString("\" \"User Commands\"\n")

	content.WriteString(".SH NAME\n")
	content.WriteString("azpim \\- Azure Privileged Identity Management CLI\n")

	content.WriteString(".SH SYNOPSIS\n")
	content.WriteString(".B azpim\n")
	content.WriteString("[\\fIOPTIONS\\fR] \\fICOMMAND\\fR\n")

	content.WriteString(".SH DESCRIPTION\n")
	content.WriteString("\\fBazpim\\fR activates Azure PIM eligible role assignments from the command line.\n")
	content.WriteString("It signs the user in through the system browser, finds the single eligible\n")
	content.WriteString("assignment matching a subscription name or number, and requests its activation.\n")
	content.WriteString(".PP\n")
	content.WriteString("Nothing is activated unless exactly one assignment matches the filters.\n")

	content.WriteString(".SH COMMANDS\n")
	writeEntries(&content, []manEntry{
		{"\\fBlist\\fR", "List the Azure resource roles you are eligible to activate, grouped by resource."},
		{"\\fBactivate\\fR", "Activate the eligible role assignment matching the subscription and role filters."},
		{"\\fBversion\\fR", "Print version information including build details."},
	})

	content.WriteString(".SH OPTIONS\n")
	content.WriteString(".SS Global Options\n")
	writeEntries(&content, []manEntry{
		{"\\fB--config\\fR \\fIFILE\\fR", "Path to configuration file."},
		{"\\fB--log-level\\fR \\fILEVEL\\fR", "Set log level: debug, info, warn, error."},
	})
	content.WriteString(".SS List and Activate Options\n")
	writeEntries(&content, []manEntry{
		{"\\fB-t\\fR, \\fB--tenant-id\\fR \\fITENANT\\fR", "Tenant ID in which the Azure subscription exists."},
	})
	content.WriteString(".SS Activate Options\n")
	writeEntries(&content, []manEntry{
		{"\\fB-s\\fR, \\fB--subscription-name\\fR \\fINAME\\fR", "Name, or part of the name, of the subscription to activate."},
		{"\\fB-n\\fR, \\fB--subscription-number\\fR \\fINUMBER\\fR", "First four characters of the subscription name, e.g. S398."},
		{"\\fB-r\\fR, \\fB--role-type\\fR \\fIROLE\\fR", "Role to activate when several are eligible, e.g. Owner or Contributor."},
		{"\\fB--reason\\fR \\fITEXT\\fR", "Justification sent with the activation request."},
		{"\\fB--duration\\fR \\fIMINUTES\\fR", "Activation duration in minutes (default 480, at most 1440)."},
	})

	content.WriteString(".SH ENVIRONMENT\n")
	content.WriteString("Configuration can be provided via environment variables as an alternative to CLI flags:\n")
	writeEntries(&content, []manEntry{
		{"\\fBAZPIM_TENANT_ID\\fR", "Azure AD tenant ID. \\fBTENANT_ID\\fR is used when it is not set."},
		{"\\fBAZPIM_CONFIG\\fR", "Path to configuration file."},
		{"\\fBAZPIM_LOG_LEVEL\\fR", "Log level (debug, info, warn, error)."},
		{"\\fBAZPIM_DURATION\\fR", "Activation duration in minutes."},
		{"\\fBAZPIM_REASON\\fR", "Justification sent with activation requests."},
		{"\\fBAZPIM_ACCESS_TOKEN\\fR", "Pre-acquired PIM access token; skips the browser sign-in."},
		{"\\fBAZPIM_BASE_URL\\fR", "PIM API base URL."},
	})
	content.WriteString(".PP\n")
	content.WriteString("Environment variables have lower precedence than CLI flags but higher than config files.\n")

	content.WriteString(".SH FILES\n")
	writeEntries(&content, []manEntry{
		{"\\fI~/.config/azpim/config.yaml\\fR", "User configuration file (Linux)."},
		{"\\fI~/Library/Preferences/azpim/config.yaml\\fR", "User configuration file (macOS)."},
		{"\\fI~/.azpim/config.yaml\\fR", "User configuration file (Windows and fallback)."},
	})

	content.WriteString(".SH EXIT STATUS\n")
	writeEntries(&content, []manEntry{
		{"\\fB0\\fR", "The command succeeded."},
		{"\\fB1\\fR", "The command failed or was interrupted."},
		{"\\fB2\\fR", "An unexpected internal error occurred."},
	})

	content.WriteString(".SH EXAMPLES\n")
	writeExample(&content, "List eligible roles:", "azpim list -t 00000000-0000-0000-0000-000000000000")
	writeExample(&content, "Activate the only eligible role on subscription S398:", "azpim activate -n S398")
	writeExample(&content, "Activate the Owner role on a subscription by name for one hour:", "azpim activate -s production -r Owner --duration 60")

	content.WriteString(".SH SEE ALSO\n")
	content.WriteString("\\fBaz\\fR(1)\n")
	content.WriteString(".PP\n")
	content.WriteString("Azure PIM documentation:\n")
	content.WriteString("https://learn.microsoft.com/azure/active-directory/privileged-identity-management/\n")

	return content.String(), nil
}

// WriteManPageToFile writes the man page content to a file
func WriteManPageToFile(filename string) error {
	content, err := GenerateManPage()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}
