package actions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Runner file commands.
const (
	EnvPathFile = "GITHUB_PATH"
	EnvEnvFile  = "GITHUB_ENV"

	// delimiterPrefix matches the heredoc delimiters produced by the official toolkit.
	delimiterPrefix = "ghadelimiter_"

	fileCommandPermissions = 0o644
)

var (
	// errInvalidName is returned for an empty variable name.
	errInvalidName = errors.New("variable name must not be empty")
	// errDelimiterCollision is returned when a value contains the generated delimiter.
	errDelimiterCollision = errors.New("value contains the delimiter")
)

// Host applies side effects the runner picks up after the step finishes.
type Host struct {
	// pathFile is the GITHUB_PATH file, empty outside of a runner.
	pathFile string
	// envFile is the GITHUB_ENV file, empty outside of a runner.
	envFile string
	// newDelimiter generates heredoc delimiters.
	newDelimiter func() string
}

// Option configures a Host.
type Option func(*Host)

// WithFiles overrides the GITHUB_PATH and GITHUB_ENV file locations.
func WithFiles(pathFile, envFile string) Option {
	return func(h *Host) {
		h.pathFile = pathFile
		h.envFile = envFile
	}
}

// NewHost creates a Host from the runner environment.
func NewHost(opts ...Option) *Host {
	h := &Host{
		pathFile: os.Getenv(EnvPathFile),
		envFile:  os.Getenv(EnvEnvFile),
		newDelimiter: func() string {
			return delimiterPrefix + uuid.NewString()
		},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// AddPath prepends dir to PATH for this process and for later steps.
func (h *Host) AddPath(dir string) error {
	if h.pathFile != "" {
		if err := appendLine(h.pathFile, dir+"\n"); err != nil {
			return fmt.Errorf("add path: %w", err)
		}
	}

	current := os.Getenv("PATH")
	if current == "" {
		return os.Setenv("PATH", dir)
	}

	return os.Setenv("PATH", dir+string(filepath.ListSeparator)+current)
}

// ExportVariable sets name=value for this process and for later steps.
func (h *Host) ExportVariable(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return errInvalidName
	}

	if h.envFile != "" {
		delimiter := h.newDelimiter()
		if strings.Contains(name, delimiter) || strings.Contains(value, delimiter) {
			return fmt.Errorf("export %s: %w", name, errDelimiterCollision)
		}

		entry := fmt.Sprintf("%s<<%s\n%s\n%s\n", name, delimiter, value, delimiter)
		if err := appendLine(h.envFile, entry); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}

	if err := os.Setenv(name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}

	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileCommandPermissions)
	if err != nil {
		return err
	}

	if _, err = f.WriteString(line); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}
