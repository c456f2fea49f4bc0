// Command probe fetches the station catalog once and, optionally, one
// station's readings, and prints them. Useful for checking the upstream API
// without starting the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/stefanpenner/flood-live/floodapi"
	"github.com/stefanpenner/flood-live/store"
	"github.com/stefanpenner/flood-live/style"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, style.Error.Render("✗ "+err.Error()))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("probe", flag.ContinueOnError)
	flags.SetOutput(out)
	station := flags.String("station", "", "Station label whose readings to print")
	limit := flags.Int("limit", store.DefaultReadingsLimit, "Most recent readings to request")
	base := flags.String("base", floodapi.DefaultBaseURL, "Flood-monitoring API base URL")
	timeout := flags.Duration("timeout", floodapi.DefaultTimeout, "Per-request timeout")
	if err := flags.Parse(args); err != nil {
		return err
	}

	client := floodapi.NewClient(*base, floodapi.WithTimeout(*timeout))
	catalog := store.NewCatalog(client, store.WithFetchTimeout(*timeout))

	fmt.Fprintln(out, style.Title.Render("🌊 Flood monitoring probe"))
	fmt.Fprintf(out, "%s %s\n", style.Key.Render("Upstream:"), style.URL.Render(client.BaseURL()))

	snap, err := catalog.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch stations: %w", err)
	}
	printCatalog(out, snap)

	if *station == "" {
		fmt.Fprintln(out, "\n"+style.Success.Render("✓ Catalog OK"))
		return nil
	}

	id, ok := snap.Lookup(*station)
	if !ok {
		return fmt.Errorf("unknown station %q", *station)
	}

	readings, err := store.NewReadings(client, store.WithReadingsTimeout(*timeout)).Fetch(ctx, id, *limit)
	if err != nil {
		return fmt.Errorf("fetch readings: %w", err)
	}
	printReadings(out, *station, id, readings)
	return nil
}

func printCatalog(out io.Writer, snap *store.Snapshot) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, style.Section.Render("Catalog"))
	fmt.Fprintf(out, "  %s %s\n", style.Key.Render("Stations:"), style.Value.Render(strconv.Itoa(len(snap.LabelToID))))
	fmt.Fprintf(out, "  %s %s\n", style.Key.Render("Mapped:"), style.Value.Render(strconv.Itoa(len(snap.Stations))))

	if len(snap.DuplicateLabels) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s %s\n", style.Key.Render("Duplicate labels:"), style.Warn.Render(strconv.Itoa(len(snap.DuplicateLabels))))
	for _, label := range snap.DuplicateLabels {
		fmt.Fprintf(out, "    %s %s %s\n", style.Warn.Render("•"), label, style.Muted.Render("→ "+snap.LabelToID[label]))
	}
}

func printReadings(out io.Writer, label, id string, readings []store.Reading) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, style.Section.Render(label+" readings (last 24h)"))
	fmt.Fprintln(out, "  "+style.Muted.Render(id))

	if len(readings) == 0 {
		fmt.Fprintln(out, "  "+style.Warn.Render("There are no readings available for this station."))
		return
	}
	fmt.Fprintf(out, "  Showing %s readings\n", style.Value.Render(strconv.Itoa(len(readings))))

	for _, measureType := range store.MeasureTypes(readings) {
		rows := [][]string{}
		for _, r := range store.FilterByMeasureType(readings, measureType) {
			rows = append(rows, []string{
				r.DateTime.UTC().Format("2006-01-02 15:04"),
				strconv.FormatFloat(r.Value, 'f', -1, 64),
			})
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "  "+style.Measure.Render(measureType))
		fmt.Fprintln(out, readingsTable(rows))
	}
}

func readingsTable(rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(style.Muted).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return style.TableHeader
			}
			return style.TableCell
		}).
		Headers("dateTime (UTC)", "value").
		Rows(rows...).
		Render()
}
