package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cwygoda/coursedl/internal/domain"
	log "github.com/sirupsen/logrus"
)

// CommandDownloader runs an external program for every clip. The {url}
// and {output} placeholders in args are replaced by the media URL and the
// partial output path.
type CommandDownloader struct {
	command string
	args    []string
}

// NewCommandDownloader creates the command backend.
func NewCommandDownloader(command string, args []string) (*CommandDownloader, error) {
	if command == "" {
		return nil, errors.New("downloader command is empty")
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("downloader command %q: %w", command, err)
	}
	return &CommandDownloader{command: command, args: args}, nil
}

func (d *CommandDownloader) Name() string {
	return "command"
}

// Download ignores the session: media URLs are pre-signed by the provider.
func (d *CommandDownloader) Download(ctx context.Context, _ domain.Requester, url, dest string) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}

	part := partPath(dest)
	args := make([]string, len(d.args))
	for i, arg := range d.args {
		arg = strings.ReplaceAll(arg, "{url}", url)
		args[i] = strings.ReplaceAll(arg, "{output}", part)
	}

	cmd := exec.CommandContext(ctx, d.command, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s failed: %w: %s", domain.ErrTransport, d.command, err, strings.TrimSpace(string(output)))
	}

	if err := os.Rename(part, dest); err != nil {
		return fmt.Errorf("%s produced no output: %w", d.command, err)
	}
	log.WithField("dest", dest).Debugf("%s finished", d.command)
	return nil
}
