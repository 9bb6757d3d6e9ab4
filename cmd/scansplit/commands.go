package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zombor/scansplitter/internal/naming"
	"github.com/zombor/scansplitter/internal/sequence"
)

var errInvalidPattern = errors.New("invalid pattern")

func newValidateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <pattern>",
		Short: "Check a naming pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := naming.Validate(args[0])
			if root.Format == "json" {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else if res.Valid {
				fmt.Fprintln(cmd.OutOrStdout(), "valid")
			}
			if !res.Valid {
				return fmt.Errorf("%w: %s", errInvalidPattern, res.Error)
			}
			return nil
		},
	}
}

func newPreviewCommand(root *rootOptions) *cobra.Command {
	var (
		opts   patternOptions
		sample = naming.DefaultSample
	)
	cmd := &cobra.Command{
		Use:   "preview <pattern>",
		Short: "Render the name of one output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := opts.pattern(args[0])
			if res := p.Validate(); !res.Valid {
				return fmt.Errorf("%w: %s", errInvalidPattern, res.Error)
			}
			preview := p.Preview(sample)
			if root.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"preview": preview})
			}
			fmt.Fprintln(cmd.OutOrStdout(), preview)
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&sample.Filename, "file", sample.Filename, "scan filename")
	cmd.Flags().IntVar(&sample.Page, "page", sample.Page, "page number")
	cmd.Flags().IntVar(&sample.PhotoIndex, "photo-index", 0, "0-based photo index on the page")
	cmd.Flags().IntVar(&sample.GlobalIndex, "index", 0, "0-based index across all outputs")
	return cmd
}

// plannedName is one line of a plan
type plannedName struct {
	sequence.Slot
	File string `json:"file"`
	Name string `json:"name"`
}

func newPlanCommand(root *rootOptions) *cobra.Command {
	var opts patternOptions
	cmd := &cobra.Command{
		Use:   "plan <pattern> <file=photos[,photos...]>...",
		Short: "List export names for a set of scans",
		Long: `List the names every output would get, in export order.

Each scan is given as its filename and the number of photos on each page,
for example "album.pdf=3,2" for a two page PDF. Duplicate names get a
_dupN suffix as they would on export.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := opts.pattern(args[0])
			if res := p.Validate(); !res.Valid {
				return fmt.Errorf("%w: %s", errInvalidPattern, res.Error)
			}

			files := make([]sequence.File, 0, len(args)-1)
			for _, arg := range args[1:] {
				f, err := parseFileArg(arg)
				if err != nil {
					return err
				}
				files = append(files, f)
			}

			slots := sequence.Assign(files)
			names := sequence.Names(p, files, slots)
			dedupe := naming.NewDeduper()
			plan := make([]plannedName, len(slots))
			for i, slot := range slots {
				plan[i] = plannedName{
					Slot: slot,
					File: files[slot.FileIndex].Name,
					Name: dedupe.Claim(names[i]) + naming.PreviewExt,
				}
			}

			if root.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), plan)
			}
			for _, n := range plan {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tp%d #%d\t%s\n", n.File, n.Page, n.Photo, n.Name)
			}
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

// parseFileArg parses "name=2,0,1"
func parseFileArg(arg string) (sequence.File, error) {
	name, counts, ok := strings.Cut(arg, "=")
	if !ok || name == "" || counts == "" {
		return sequence.File{}, fmt.Errorf("invalid scan %q: want file=photos[,photos...]", arg)
	}
	f := sequence.File{Name: name}
	for _, c := range strings.Split(counts, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(c))
		if err != nil || n < 0 {
			return sequence.File{}, fmt.Errorf("invalid photo count %q in %q", c, arg)
		}
		f.Photos = append(f.Photos, n)
	}
	return f, nil
}

func newPlaceholdersCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "placeholders",
		Short: "List the placeholders a pattern can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := naming.Placeholders()
			if root.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			for _, p := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", p.Key, p.Description)
			}
			return nil
		},
	}
}
