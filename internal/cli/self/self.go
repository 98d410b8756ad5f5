// Package self implements "self update", which replaces the running binary
// with the latest GitHub release.
package self

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/urfave/cli/v2"
)

// DefaultRepository is where releases of the installer are published.
const DefaultRepository = "leopaglia/blumen-installer"

// NewSelfCommand creates a new command for self-management.
func NewSelfCommand() *cli.Command {
	return &cli.Command{
		Name:  "self",
		Usage: "Manage the blumen CLI itself",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Update blumen to the latest version",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Automatically confirm the update",
					},
					&cli.BoolFlag{
						Name:  "check",
						Usage: "Check for available updates without installing",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Custom GitHub release source as 'owner/repo'",
						Value: DefaultRepository,
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Enable verbose output",
					},
				},
				Action: updateAction,
			},
		},
	}
}

// ParseVersion accepts versions with or without a leading "v".
func ParseVersion(v string) (*semver.Version, error) {
	parsed, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(v), "v"))
	if err != nil {
		return nil, fmt.Errorf("error parsing version '%s': %w. Ensure version is like vX.Y.Z or X.Y.Z", v, err)
	}
	return parsed, nil
}

// ParseRepositorySlug validates an "owner/repo" string.
func ParseRepositorySlug(slug string) (string, error) {
	parts := strings.Split(slug, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid --source format. Expected 'owner/repo', got: %s", slug)
	}
	return slug, nil
}

func updateAction(c *cli.Context) error {
	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	verbose := c.Bool("verbose")
	logf := func(format string, args ...any) {
		if verbose {
			_, _ = fmt.Fprintf(out, format, args...)
		}
	}

	current, err := ParseVersion(c.App.Version)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logf("blumen current version: %s\n", current)

	repoSlug, err := ParseRepositorySlug(c.String("source"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logf("Using GitHub source: %s\n", repoSlug)

	ghSource, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error creating GitHub source: %v", err), 1)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: ghSource})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to initialize updater: %v", err), 1)
	}

	logf("Checking for latest version...\n")
	latest, found, err := updater.DetectLatest(c.Context, selfupdate.ParseSlug(repoSlug))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error detecting latest version: %v", err), 1)
	}
	if !found || !latest.GreaterThan(current.String()) {
		_, _ = fmt.Fprintf(out, "Current version %s is already the latest.\n", c.App.Version)
		return nil
	}
	logf("Latest version detected: %s (Release URL: %s)\n", latest.Version(), latest.URL)

	_, _ = fmt.Fprintf(out, "New version available: %s (current: %s)\n", latest.Version(), c.App.Version)
	if c.Bool("check") {
		return nil
	}

	if !c.Bool("yes") && !confirm(out, os.Stdin) {
		_, _ = fmt.Fprintln(out, "Update cancelled.")
		return nil
	}

	execPath, err := os.Executable()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Could not get executable path: %v", err), 1)
	}
	_, _ = fmt.Fprintf(out, "Updating to %s...\n", latest.Version())
	if err := updater.UpdateTo(c.Context, latest, execPath); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to update: %v", err), 1)
	}

	_, _ = fmt.Fprintf(out, "Successfully updated to version %s.\n", latest.Version())
	return nil
}

func confirm(out io.Writer, in io.Reader) bool {
	_, _ = fmt.Fprint(out, "Do you want to update? (y/N): ")
	input, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(strings.ToLower(input)) == "y"
}
