package document

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/hashicorp-forge/peopledoc/internal/cmd/base"
	"github.com/hashicorp-forge/peopledoc/pkg/transport"
)

// Command is the "document" parent command.
type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Upload and download employee documents"
}

func (c *Command) Help() string {
	return `Usage: peopledoc document <subcommand> [options]

  Subcommands:

    archive    Copy a document file to the configured S3 bucket
    download   Download a document file
    upload     Upload a document file to an employee's vault`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(c.Help())
	return 1
}

// DownloadCommand writes a document's file to disk.
type DownloadCommand struct {
	*base.Command

	flagID     string
	flagOutput string
}

func (c *DownloadCommand) Synopsis() string {
	return "Download a document file"
}

func (c *DownloadCommand) Help() string {
	return `Usage: peopledoc document download -id=<id> [-output=<path>]

  Downloads a document through a signed URL. The file is written to
  <id>.pdf unless -output is set.` + c.Flags().Help()
}

func (c *DownloadCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("document download", flag.ContinueOnError))
	c.ClientFlags(f)
	f.StringVar(&c.flagID, "id", "", "Document id")
	f.StringVar(&c.flagOutput, "output", "", "Destination path")
	return f
}

func (c *DownloadCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Error("error parsing flags: %v", err)
	}
	if c.flagID == "" {
		return c.Error("-id is required")
	}
	output := c.flagOutput
	if output == "" {
		output = c.flagID + ".pdf"
	}

	client, err := c.Client()
	if err != nil {
		return c.Error("%v", err)
	}

	ctx, cancel := c.Context()
	defer cancel()

	resp, err := client.Documents.Download(ctx, c.flagID)
	if err != nil {
		return c.Error("error downloading document: %v", err)
	}
	if resp == nil {
		return c.Error("document %q not found", c.flagID)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := c.Fs.MkdirAll(dir, 0o755); err != nil {
			return c.Error("error creating %s: %v", dir, err)
		}
	}
	if err := afero.WriteFile(c.Fs, output, resp.Body, 0o644); err != nil {
		return c.Error("error writing %s: %v", output, err)
	}

	c.Log.Info("document downloaded", "id", c.flagID, "bytes", len(resp.Body))
	c.UI.Output(fmt.Sprintf("Wrote %d bytes to %s", len(resp.Body), output))
	return 0
}

// UploadCommand uploads a file with its metadata.
type UploadCommand struct {
	*base.Command

	flagFile     string
	flagEmployee string
	flagTitle    string
	flagTypeCode string
}

func (c *UploadCommand) Synopsis() string {
	return "Upload a document file to an employee's vault"
}

func (c *UploadCommand) Help() string {
	return `Usage: peopledoc document upload -file=<path> -employee=<technical_id> -title=<title>` + c.Flags().Help()
}

func (c *UploadCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("document upload", flag.ContinueOnError))
	c.ClientFlags(f)
	f.StringVar(&c.flagFile, "file", "", "PDF file to upload")
	f.StringVar(&c.flagEmployee, "employee", "", "Employee technical id")
	f.StringVar(&c.flagTitle, "title", "", "Document title")
	f.StringVar(&c.flagTypeCode, "type-code", "", "Document type code")
	return f
}

func (c *UploadCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return c.Error("error parsing flags: %v", err)
	}
	if c.flagFile == "" {
		return c.Error("-file is required")
	}

	upload, err := transport.UploadFile(c.Fs, c.flagFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c.Error("file not found: %s", c.flagFile)
		}
		return c.Error("%v", err)
	}

	client, err := c.Client()
	if err != nil {
		return c.Error("%v", err)
	}

	raw := map[string]any{
		"title":                 c.flagTitle,
		"employee_technical_id": c.flagEmployee,
	}
	if c.flagTypeCode != "" {
		raw["document_type_code"] = c.flagTypeCode
	}
	doc, err := client.Documents.New(raw)
	if err != nil {
		return c.Error("%v", err)
	}

	ctx, cancel := c.Context()
	defer cancel()

	resp, err := doc.Save(ctx, upload)
	if err != nil {
		return c.Error("error uploading document: %v", err)
	}

	c.UI.Output(fmt.Sprintf("Uploaded %s (status %d): %s", c.flagFile, resp.StatusCode, resp.Body))
	return 0
}

// ArchiveCommand copies a document's file into the archive bucket.
type ArchiveCommand struct {
	*base.Command

	flagID string
}

func (c *ArchiveCommand) Synopsis() string {
	return "Copy a document file to the configured S3 bucket"
}

func (c *ArchiveCommand) Help() string {
	return `Usage: peopledoc document archive -config=<file> -id=<id>

  Downloads a document and stores it in the bucket named by the archive
  block of the configuration file.` + c.Flags().Help()
}

func (c *ArchiveCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("document archive", flag.ContinueOnError))
	c.ClientFlags(f)
	f.StringVar(&c.flagID, "id", "", "Document id")
	return f
}

func (c *ArchiveCommand) Run(args []string) int {
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

	a, err := c.Archive(ctx)
	if err != nil {
		return c.Error("%v", err)
	}

	resp, err := client.Documents.Download(ctx, c.flagID)
	if err != nil {
		return c.Error("error downloading document: %v", err)
	}
	if resp == nil {
		return c.Error("document %q not found", c.flagID)
	}

	obj, err := a.Put(ctx, c.flagID, resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return c.Error("error archiving document: %v", err)
	}

	c.UI.Output(fmt.Sprintf("Archived %s to %s (sha256 %s)", c.flagID, obj.Key, obj.SHA256))
	return 0
}
