package employee

import (
	"flag"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/hashicorp-forge/peopledoc/internal/cmd/base"
)

// Command is the "employee" parent command.
type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Inspect employees and report departures and returns"
}

func (c *Command) Help() string {
	return `Usage: peopledoc employee <subcommand> [options]

  Subcommands:

    get      Print an employee
    leave    Report an employee's departure
    return   Report an employee's return`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(c.Help())
	return 1
}

// GetCommand prints one employee as JSON.
type GetCommand struct {
	*base.Command

	flagID string
}

func (c *GetCommand) Synopsis() string {
	return "Print an employee"
}

func (c *GetCommand) Help() string {
	return `Usage: peopledoc employee get -id=<technical_id>

  Fetches an employee by technical id and prints it as JSON.` + c.Flags().Help()
}

func (c *GetCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("employee get", flag.ContinueOnError))
	c.ClientFlags(f)
	f.StringVar(&c.flagID, "id", "", "Employee technical id")
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

	emp, err := client.Employees.FindByID(ctx, c.flagID)
	if err != nil {
		return c.Error("error fetching employee: %v", err)
	}
	if emp == nil {
		return c.Error("employee %q not found", c.flagID)
	}

	out, err := json.MarshalIndent(emp.Model, "", "  ")
	if err != nil {
		return c.Error("error encoding employee: %v", err)
	}
	c.UI.Output(string(out))
	return 0
}

// StateCommand reports a departure or a return.
type StateCommand struct {
	*base.Command

	// Leave selects a departure; otherwise a return is reported.
	Leave bool

	flagID string
}

func (c *StateCommand) name() string {
	if c.Leave {
		return "leave"
	}
	return "return"
}

func (c *StateCommand) Synopsis() string {
	if c.Leave {
		return "Report an employee's departure"
	}
	return "Report an employee's return"
}

func (c *StateCommand) Help() string {
	return fmt.Sprintf(`Usage: peopledoc employee %s -id=<technical_id>

  %s.`, c.name(), c.Synopsis()) + c.Flags().Help()
}

func (c *StateCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("employee "+c.name(), flag.ContinueOnError))
	c.ClientFlags(f)
	f.StringVar(&c.flagID, "id", "", "Employee technical id")
	return f
}

func (c *StateCommand) Run(args []string) int {
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

	if c.Leave {
		err = client.Employees.Leave(ctx, c.flagID)
	} else {
		err = client.Employees.Returns(ctx, c.flagID)
	}
	if err != nil {
		return c.Error("error reporting %s: %v", c.name(), err)
	}

	c.Log.Info("employee updated", "technical_id", c.flagID, "action", c.name())
	c.UI.Output(fmt.Sprintf("Employee %s: %s reported", c.flagID, c.name()))
	return 0
}
