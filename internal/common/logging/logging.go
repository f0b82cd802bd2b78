package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	FormatText = "text"
	FormatJson = "json"
)

var validLogFormats = map[string]bool{
	FormatText: true,
	FormatJson: true,
}

// Config defines console logging.
type Config struct {
	// Log level, e.g. info, debug etc
	Level string `yaml:"level"`
	// Logging format, either text or json
	Format string `yaml:"format"`
	// Force colours on text output even when stdout is not a terminal
	Colours bool `yaml:"colours"`
}

// ConfigureLogging sets up the standard logrus logger. Call once at startup.
func ConfigureLogging(c Config) error {
	return configure(log.StandardLogger(), os.Stdout, c)
}

func configure(logger *log.Logger, out io.Writer, c Config) error {
	if err := validate(c); err != nil {
		return err
	}
	level, err := log.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		return errors.WithStack(err)
	}
	logger.SetLevel(level)
	logger.SetOutput(out)
	if c.Format == FormatJson {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{ForceColors: c.Colours, FullTimestamp: true})
	}
	return nil
}

func validate(c Config) error {
	if _, err := log.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return errors.Errorf("unknown level: %s", c.Level)
	}
	if _, ok := validLogFormats[c.Format]; !ok {
		formats := maps.Keys(validLogFormats)
		slices.Sort(formats)
		return errors.Errorf("unknown log format: %s.  Valid formats are %s", c.Format, formats)
	}
	return nil
}
