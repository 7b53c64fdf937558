package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/bamsammich/ddx/internal/operand"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "gen-docs",
		Short:  "Generate the ddx man page or markdown reference",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE:   runGenDocs,
	}
	cmd.Flags().String("dir", "docs", "output directory")
	cmd.Flags().String("format", "man", "output format (man or markdown)")
	return cmd
}

func runGenDocs(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")       //nolint:errcheck // flag name is hardcoded
	format, _ := cmd.Flags().GetString("format") //nolint:errcheck // flag name is hardcoded

	if format != "man" && format != "markdown" {
		return fmt.Errorf("unknown format %q (use man or markdown)", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// The operand list in the help text is written by hand; the generated
	// pages also carry the symbol sets the parser accepts.
	root := cmd.Root()
	root.Long += "\n\n" + symbolReference()

	if format == "markdown" {
		return doc.GenMarkdownTree(root, dir)
	}
	header := &doc.GenManHeader{
		Title:   "DDX",
		Section: "1",
		Manual:  "User Commands",
		Source:  "ddx " + version,
	}
	return doc.GenManTree(root, header, dir)
}

// symbolReference lists every operand and the symbols accepted by the
// list-valued ones.
func symbolReference() string {
	var b strings.Builder
	b.WriteString("Operands: " + strings.Join(operand.Symbols(""), ", ") + ".\n")
	for _, name := range []string{"conv", "iflag", "oflag", "status"} {
		fmt.Fprintf(&b, "\n%s= symbols: %s.\n", name, strings.Join(operand.Symbols(name), ", "))
	}
	b.WriteString("\nSizes and counts take the suffixes c w b kB K MB M GB G and their KiB MiB GiB spellings, or products such as 2x512.\n")
	return b.String()
}
