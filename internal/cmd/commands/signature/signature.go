package signature

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"github.com/hashicorp-forge/peopledoc/internal/cmd/base"
	"github.com/hashicorp-forge/peopledoc/internal/config"
	"github.com/hashicorp-forge/peopledoc/pkg/events"
	"github.com/hashicorp-forge/peopledoc/pkg/peopledoc"
)

// Command is the "signature" parent command.
type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Inspect signing processes"
}

func (c *Command) Help() string {
	return `Usage: peopledoc signature <subcommand> [options]

  Subcommands:

    get    Print a signing process
    list   List signing processes
    wait   Wait for a signing process to reach a status`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(c.Help())
	return 1
}

// GetCommand prints one signing process.
type GetCommand struct {
	*base.Command

	flagID string
}

func (c *GetCommand) Synopsis() string {
	return "Print a signing process"
}

func (c *GetCommand) Help() string {
	return `Usage: peopledoc signature get -id=<id>` + c.Flags().Help()
}

func (c *GetCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("signature get", flag.ContinueOnError))
	c.ClientFlags(f)
	f.StringVar(&c.flagID, "id", "", "Signature id")
	return f
}

func (c *GetCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Error("error parsing flags: %v", err)
	}
	if c.flagID == "" {
		return c.Error("-id is required")
	}

	client, err := c.Client()
	if err != nil {
		return c.Error("%v", err)
	}

	ctx, cancel := c.Context()
	defer cancel()

	sig, err := client.Signatures.FindByID(ctx, c.flagID)
	if err != nil {
		return c.Error("error fetching signature: %v", err)
	}
	if sig == nil {
		return c.Error("signature %q not found", c.flagID)
	}
	return output(c.Command, sig)
}

// ListCommand lists signing processes, one per line.
type ListCommand struct {
	*base.Command

	flagState      string
	flagPage       int
	flagExternalID string
}

func (c *ListCommand) Synopsis() string {
	return "List signing processes"
}

func (c *ListCommand) Help() string {
	return `Usage: peopledoc signature list [-state=<state>] [-page=<n>] [-external-id=<id>]` + c.Flags().Help()
}

func (c *ListCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("signature list", flag.ContinueOnError))
	c.ClientFlags(f)
	f.StringVar(&c.flagState, "state", "", "Only list processes in this state")
	f.IntVar(&c.flagPage, "page", 0, "Page number, starting at 1")
	f.StringVar(&c.flagExternalID, "external-id", "", "Only list processes with this external id")
	return f
}

func (c *ListCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Error("error parsing flags: %v", err)
	}

	client, err := c.Client()
	if err != nil {
		return c.Error("%v", err)
	}

	ctx, cancel := c.Context()
	defer cancel()

	page, err := client.Signatures.Find(ctx, peopledoc.Query{
		State:      c.flagState,
		Page:       c.flagPage,
		ExternalID: c.flagExternalID,
	})
	if err != nil {
		return c.Error("error listing signatures: %v", err)
	}

	for _, sig := range page.Signatures {
		c.UI.Output(fmt.Sprintf("%v\t%v\t%v", sig.Get("id"), sig.Get("status"), sig.Get("title")))
	}
	if page.Next {
		c.UI.Info("More results are available with -page")
	}
	return 0
}

// WaitCommand polls a signing process until it reaches one of the given
// statuses.
type WaitCommand struct {
	*base.Command

	flagID       string
	flagStatus   string
	flagInterval time.Duration
	flagTimeout  time.Duration
	flagPublish  bool
}

func (c *WaitCommand) Synopsis() string {
	return "Wait for a signing process to reach a status"
}

func (c *WaitCommand) Help() string {
	return `Usage: peopledoc signature wait -id=<id> [-status=signed,refused]` + c.Flags().Help()
}

func (c *WaitCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("signature wait", flag.ContinueOnError))
	c.ClientFlags(f)
	f.StringVar(&c.flagID, "id", "", "Signature id")
	f.StringVar(&c.flagStatus, "status", "signed,refused,expired", "Comma-separated statuses to wait for")
	f.DurationVar(&c.flagInterval, "interval", 10*time.Second, "Initial polling interval")
	f.DurationVar(&c.flagTimeout, "timeout", 30*time.Minute, "Give up after this long")
	f.BoolVar(&c.flagPublish, "publish", false, "Publish the final status to the configured events topic")
	return f
}

func (c *WaitCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Error("error parsing flags: %v", err)
	}
	if c.flagID == "" {
		return c.Error("-id is required")
	}

	var statuses []string
	for _, s := range strings.Split(c.flagStatus, ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}

	client, err := c.Client()
	if err != nil {
		return c.Error("%v", err)
	}

	var pub *events.Publisher
	if c.flagPublish {
		pub, err = c.Publisher()
		if err != nil {
			return c.Error("error creating event publisher: %v", err)
		}
		if pub == nil {
			return c.Error("-publish requires an events block or %s", config.EnvBrokers)
		}
		defer pub.Close()
	}

	ctx, cancel := c.Context()
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.flagInterval
	b.MaxInterval = 10 * c.flagInterval
	b.MaxElapsedTime = c.flagTimeout

	sig, err := client.Signatures.WaitForStatus(ctx, c.flagID, statuses, b)
	if err != nil {
		return c.Error("error waiting for signature: %v", err)
	}

	if pub != nil {
		status, _ := sig.Get("status").(string)
		externalID, _ := sig.Get("external_id").(string)
		title, _ := sig.Get("title").(string)
		ev, err := pub.SignatureStatus(ctx, c.flagID, status, externalID, title)
		if err != nil {
			return c.Error("error publishing event: %v", err)
		}
		c.Log.Info("signature event published", "id", ev.ID, "status", status)
	}
	return output(c.Command, sig)
}

func output(c *base.Command, sig *peopledoc.Signature) int {
	out, err := json.MarshalIndent(sig.Model, "", "  ")
	if err != nil {
		return c.Error("error encoding signature: %v", err)
	}
	c.UI.Output(string(out))
	return 0
}
