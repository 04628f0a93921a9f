package cmd

import (
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/peopledoc/internal/cmd/base"
	"github.com/hashicorp-forge/peopledoc/internal/cmd/commands/document"
	"github.com/hashicorp-forge/peopledoc/internal/cmd/commands/employee"
	"github.com/hashicorp-forge/peopledoc/internal/cmd/commands/signature"
	"github.com/hashicorp-forge/peopledoc/internal/cmd/commands/version"
)

// Commands is the mapping of all available commands.
var Commands map[string]cli.CommandFactory

func initCommands(b *base.Command) {
	Commands = map[string]cli.CommandFactory{
		"employee": func() (cli.Command, error) {
			return &employee.Command{Command: b}, nil
		},
		"employee get": func() (cli.Command, error) {
			return &employee.GetCommand{Command: b}, nil
		},
		"employee leave": func() (cli.Command, error) {
			return &employee.StateCommand{Command: b, Leave: true}, nil
		},
		"employee return": func() (cli.Command, error) {
			return &employee.StateCommand{Command: b}, nil
		},
		"document": func() (cli.Command, error) {
			return &document.Command{Command: b}, nil
		},
		"document archive": func() (cli.Command, error) {
			return &document.ArchiveCommand{Command: b}, nil
		},
		"document download": func() (cli.Command, error) {
			return &document.DownloadCommand{Command: b}, nil
		},
		"document upload": func() (cli.Command, error) {
			return &document.UploadCommand{Command: b}, nil
		},
		"signature": func() (cli.Command, error) {
			return &signature.Command{Command: b}, nil
		},
		"signature get": func() (cli.Command, error) {
			return &signature.GetCommand{Command: b}, nil
		},
		"signature list": func() (cli.Command, error) {
			return &signature.ListCommand{Command: b}, nil
		},
		"signature wait": func() (cli.Command, error) {
			return &signature.WaitCommand{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
