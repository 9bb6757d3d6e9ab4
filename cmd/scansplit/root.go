package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zombor/scansplitter/internal/naming"
)

// rootOptions holds flags shared by every command
type rootOptions struct {
	Format string // "text" | "json"
}

var validFormats = []string{"text", "json"}

// patternOptions are the naming flags used by preview and plan
type patternOptions struct {
	Album string
	Start string
}

func (o *patternOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Album, "album", "", "album name")
	cmd.Flags().StringVar(&o.Start, "start", "1", "start number")
}

func (o *patternOptions) pattern(text string) naming.Pattern {
	return naming.Pattern{
		AlbumName:   o.Album,
		StartNumber: naming.ParseStartNumber(o.Start),
		Pattern:     text,
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "scansplit",
		Short: "Check naming patterns for split photo scans",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newPreviewCommand(opts))
	cmd.AddCommand(newPlanCommand(opts))
	cmd.AddCommand(newPlaceholdersCommand(opts))

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
