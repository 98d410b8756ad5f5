// Package newcmd implements the "new" command, which scaffolds a project from
// a template archive.
package newcmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/leopaglia/blumen-installer/internal/core/config"
	"github.com/leopaglia/blumen-installer/internal/core/downloader"
	"github.com/leopaglia/blumen-installer/internal/core/extractor"
	"github.com/leopaglia/blumen-installer/internal/core/fsys"
	"github.com/leopaglia/blumen-installer/internal/core/logging"
	"github.com/leopaglia/blumen-installer/internal/core/scaffold"
	"github.com/leopaglia/blumen-installer/internal/core/source"
)

const (
	existsMessage = "Application already exists!"
	readyMessage  = "Application ready! Build something amazing."
)

// NewNewCommand creates the cli.Command for "new".
func NewNewCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a new Blumen application",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "Template to scaffold: github:owner/repo[@ref], a GitHub URL or a zip URL",
				EnvVars: []string{"BLUMEN_TEMPLATE"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Give up on the download after this long (0 waits indefinitely)",
				EnvVars: []string{"BLUMEN_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not draw progress bars",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Settings file to use instead of ./" + config.SettingsFileName,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
			},
		},
		Action: newAction,
	}
}

func newAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("Error: 'new' requires exactly one argument, the application name.", 1)
	}
	name, err := targetName(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	verbose := c.Bool("verbose")
	verbosity := 0
	if verbose {
		verbosity = 2
	}
	logging.Setup(verbosity, errWriter(c))

	wd, err := os.Getwd()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: could not determine the current directory: %v", err), 1)
	}

	settings, err := loadSettings(c, wd)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error loading settings: %v", err), 1)
	}

	templateRef := settings.Template
	if c.IsSet("template") {
		templateRef = c.String("template")
	}
	timeout := settings.Timeout
	if c.IsSet("timeout") {
		timeout = c.Duration("timeout")
	}
	if timeout < 0 {
		return cli.Exit("Error: --timeout must not be negative.", 1)
	}

	src, err := source.ParseTemplateSource(templateRef)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	if verbose {
		_, _ = fmt.Fprintf(out, "Template: %s (%s)\n", src.CanonicalURL, src.ArchiveURL)
	}

	fs := fsys.NewOS(wd)
	dl := downloader.New(fs)
	dl.Client = &http.Client{Timeout: timeout}
	dl.Prefix = settings.TempPrefix
	dl.UserAgent = "blumen/" + strings.TrimPrefix(c.App.Version, "v")
	dl.Logger = logging.GetLogger("downloader")
	ex := extractor.New(fs)
	ex.Logger = logging.GetLogger("extractor")
	if settings.Progress && !c.Bool("no-progress") {
		dl.Progress = errWriter(c)
		ex.Progress = errWriter(c)
	}

	infoColor := color.New(color.FgGreen).SprintFunc()
	commentColor := color.New(color.FgYellow).SprintFunc()
	warnColor := color.New(color.FgRed).SprintFunc()

	_, _ = fmt.Fprintln(out, infoColor("Crafting application..."))

	res, err := scaffold.New(fs, dl, ex).Run(c.Context, scaffold.Request{Target: name, ArchiveURL: src.ArchiveURL})
	if err != nil {
		return exitFor(err)
	}

	if len(res.Stragglers) > 0 {
		_, _ = fmt.Fprintf(errWriter(c), "%s %d template entries could not be copied and were left in place:\n",
			warnColor("Warning:"), len(res.Stragglers))
		for _, s := range res.Stragglers {
			_, _ = fmt.Fprintf(errWriter(c), "  %s\n", filepath.FromSlash(s))
		}
	}
	if verbose {
		_, _ = fmt.Fprintf(out, "Archive digest: %s\n", res.ArchiveDigest)
		_, _ = fmt.Fprintf(out, "Flattened %s: %d entries moved\n", res.Root, len(res.Copied))
	}

	_, _ = fmt.Fprintln(out, commentColor(readyMessage))
	return nil
}

// targetName validates the application name and returns it as a slash
// separated path relative to the working directory.
func targetName(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("application name must not be empty")
	}
	if filepath.IsAbs(raw) {
		return "", fmt.Errorf("application name '%s' must be relative to the current directory", raw)
	}
	cleaned := filepath.Clean(raw)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("application name '%s' must name a directory below the current one", raw)
	}
	return filepath.ToSlash(cleaned), nil
}

func loadSettings(c *cli.Context, wd string) (*config.Settings, error) {
	if p := c.String("config"); p != "" {
		return config.LoadFile(p)
	}
	return config.Load(wd)
}

func exitFor(err error) error {
	switch {
	case errors.Is(err, scaffold.ErrTargetExists):
		return cli.Exit(existsMessage, 1)
	case errors.Is(err, extractor.ErrMissingCapability):
		return cli.Exit(fmt.Sprintf("Error: %v. Only zip template archives are supported.", err), 1)
	case errors.Is(err, downloader.ErrNetworkFailure):
		return cli.Exit(fmt.Sprintf("Error downloading template: %v", err), 1)
	case errors.Is(err, extractor.ErrArchiveUnreadable):
		return cli.Exit(fmt.Sprintf("Error: the template archive could not be read: %v", err), 1)
	case errors.Is(err, scaffold.ErrUnexpectedArchiveLayout):
		return cli.Exit(fmt.Sprintf("Error: the template archive has an unexpected layout: %v", err), 1)
	default:
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
