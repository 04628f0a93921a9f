package base

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/peopledoc/internal/config"
	"github.com/hashicorp-forge/peopledoc/pkg/archive"
	"github.com/hashicorp-forge/peopledoc/pkg/events"
	"github.com/hashicorp-forge/peopledoc/pkg/peopledoc"
	"github.com/hashicorp-forge/peopledoc/pkg/transport"
)

// Command is embedded by every subcommand.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui

	// Fs is where downloaded files are written.
	Fs afero.Fs

	// Registerer receives the client's metrics. Nil disables them.
	Registerer prometheus.Registerer

	// ClientOptions are appended when building the API client.
	ClientOptions []peopledoc.Option

	// Producer replaces the Kafka client built from the events block.
	Producer events.Producer

	flagConfig  string
	flagBaseURI string
	flagAPIKey  string
}

// NewCommand returns a Command writing to the OS filesystem.
func NewCommand(log hclog.Logger, ui cli.Ui) *Command {
	return &Command{
		Log: log,
		UI:  ui,
		Fs:  afero.NewOsFs(),
	}
}

// FlagSet wraps a flag.FlagSet with help rendering.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// Help renders the flags for a command's help text.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s", fl.Name)
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&b, "=%s", fl.DefValue)
		}
		fmt.Fprintf(&b, "\n      %s\n", fl.Usage)
	})
	return b.String()
}

// ClientFlags registers the flags shared by every API command.
func (c *Command) ClientFlags(f *FlagSet) {
	f.StringVar(
		&c.flagConfig, "config", "",
		"Path to an HCL configuration file",
	)
	f.StringVar(
		&c.flagBaseURI, "base-uri", "",
		"["+config.EnvBaseURI+"] PeopleDoc API root",
	)
	f.StringVar(
		&c.flagAPIKey, "api-key", "",
		"["+config.EnvAPIKey+"] PeopleDoc API key",
	)
}

// Config loads, in increasing priority, the config file, the environment
// and the flags.
func (c *Command) Config() (*config.Config, error) {
	cfg := config.NewConfig()
	if c.flagConfig != "" {
		var err error
		cfg, err = config.NewFromFile(c.flagConfig)
		if err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if c.flagBaseURI != "" {
		cfg.PeopleDoc.BaseURI = c.flagBaseURI
	}
	if c.flagAPIKey != "" {
		cfg.PeopleDoc.APIKey = c.flagAPIKey
	}

	if lvl := hclog.LevelFromString(cfg.LogLevel); lvl != hclog.NoLevel {
		c.Log.SetLevel(lvl)
	}
	return cfg, nil
}

// Client builds an API client from the loaded configuration.
func (c *Command) Client() (*peopledoc.Client, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}

	tc, err := cfg.Transport()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	opts := []peopledoc.Option{peopledoc.WithLogger(c.Log)}
	if c.Registerer != nil {
		opts = append(opts, peopledoc.WithMetrics(transport.NewMetrics(c.Registerer)))
	}
	opts = append(opts, c.ClientOptions...)

	return peopledoc.New(tc, opts...)
}

// Archive builds the document archive. It fails when no archive block is
// configured.
func (c *Command) Archive(ctx context.Context) (*archive.Archive, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	ac, err := cfg.ArchiveConfig()
	if err != nil {
		return nil, err
	}
	if ac == nil {
		return nil, fmt.Errorf("no archive block in the configuration")
	}
	return archive.New(ctx, ac, c.Log)
}

// Publisher builds the event publisher, or returns nil when events are not
// configured.
func (c *Command) Publisher() (*events.Publisher, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	ec := cfg.EventsConfig()
	switch {
	case c.Producer != nil:
		topic := ""
		if ec != nil {
			topic = ec.Topic
		}
		return events.NewPublisherWithProducer(c.Producer, topic, c.Log), nil
	case ec == nil:
		return nil, nil
	}
	return events.NewPublisher(*ec, c.Log)
}

// Context returns a context cancelled on SIGINT or SIGTERM.
func (c *Command) Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Error reports err on the UI and returns exit code 1.
func (c *Command) Error(format string, args ...any) int {
	c.UI.Error(fmt.Sprintf(format, args...))
	return 1
}
