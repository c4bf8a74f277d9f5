package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/githubixx/mythrecordings-go/internal/domain"
)

func newBrowseCommand(ctx *commandContext) *cobra.Command {
	var groups []string
	var filters []string
	var sortKey string
	var offset int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Print one level of the recording hierarchy",
		Long: `Print one level of the recording hierarchy.

Without flags the main menu is printed. Each directory and page break lists
the flags that open it, for example:

  mythrecordings browse --group Category --group Title
  mythrecordings browse --group Title --filter Category=Drama --offset 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, ctx.newLogger(os.Stderr))
			if err != nil {
				return err
			}
			defer a.close()

			v := url.Values{}
			for _, g := range groups {
				v.Add(domain.ParamGroup, g)
			}
			for _, f := range filters {
				v.Add(domain.ParamFilter, f)
			}
			if sortKey != "" {
				v.Set(domain.ParamSort, sortKey)
			}
			if offset != 0 {
				v.Set(domain.ParamOffset, strconv.Itoa(offset))
			}

			var listing *domain.Listing
			if len(v) == 0 {
				listing = a.browser.Menu()
			} else {
				action, err := domain.ParseBrowseAction(v)
				if err != nil {
					return err
				}
				listing, err = a.browser.Browse(cmd.Context(), action)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(listing)
			}
			printListing(out, listing)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&groups, "group", "g", nil, "Group key, repeat for nested levels")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Filter as Key=Value, repeatable")
	cmd.Flags().StringVar(&sortKey, "sort", "", "Sort key for flat listings (default StartTime, newest first)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset into the listing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the listing as JSON")
	return cmd
}

func printListing(out io.Writer, listing *domain.Listing) {
	fmt.Fprintln(out, listing.Title)

	rows := make([][]string, 0, len(listing.Nodes))
	for _, node := range listing.Nodes {
		switch n := node.(type) {
		case domain.DirectoryNode:
			rows = append(rows, []string{"dir", n.Title, "", actionFlags(n.Action)})
		case domain.LeafNode:
			detail := n.AirDate
			if n.DurationMs > 0 {
				detail += " " + (time.Duration(n.DurationMs) * time.Millisecond).String()
			}
			if n.StillRecording {
				detail += " *"
			}
			rows = append(rows, []string{"rec", n.Title, detail, n.PlaybackURL})
		case domain.PageBreakNode:
			rows = append(rows, []string{"more", n.Title, "", actionFlags(n.Action)})
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Type", "Title", "Detail", "Open"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))

	for _, d := range listing.Diagnostics {
		fmt.Fprintf(out, "skipped %q: %s\n", d.Title, d.Message)
	}
}

// actionFlags renders an action as browse flags.
func actionFlags(a domain.BrowseAction) string {
	s := ""
	add := func(part string) {
		if s != "" {
			s += " "
		}
		s += part
	}
	for _, k := range a.Plan {
		add("--group " + strconv.Quote(k))
	}
	for _, f := range a.Filter {
		add("--filter " + strconv.Quote(f.Key+"="+f.Value))
	}
	if a.SortKey != "" {
		add("--sort " + a.SortKey)
	}
	if a.Offset > 0 {
		add("--offset " + strconv.Itoa(a.Offset))
	}
	return s
}
