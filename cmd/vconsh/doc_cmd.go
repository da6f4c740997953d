package main

import (
	"os"

	"github.com/alecthomas/kong"
)

// DocCmd prints the full command tree as markdown, using the same model
// the running parser would print --help from, via MarkdownHelpPrinter.
type DocCmd struct{}

func (c *DocCmd) Run(cctx *Context) error {
	var cli CLI
	parser, err := kong.New(&cli, kong.Description(description))
	if err != nil {
		return err
	}
	kctx, err := kong.Trace(parser, nil)
	if err != nil {
		return err
	}
	kctx.Stdout = os.Stdout
	return MarkdownHelpPrinter(kong.HelpOptions{}, kctx)
}
