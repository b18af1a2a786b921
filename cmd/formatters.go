package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"threatintel/core"
	"threatintel/threat/cache"
)

// renderFeedsTable displays feeds in a formatted table
func renderFeedsTable(feedList []core.FeedDescriptor) {
	if len(feedList) == 0 {
		warningColor.Fprintln(out, "No feeds configured")
		return
	}

	headerColor.Fprintln(out, "FEEDS")
	headerColor.Fprintln(out, strings.Repeat("=", 100))
	fmt.Fprintf(out, "%-4s %-28s %s\n", "#", "Name", "URL")
	fmt.Fprintln(out, strings.Repeat("-", 100))

	for i, feed := range feedList {
		name := feed.Name
		if len(name) > 27 {
			name = name[:24] + "..."
		}
		fmt.Fprintf(out, "%-4d %-28s %s\n", i+1, name, feed.URL)
	}

	fmt.Fprintln(out, strings.Repeat("=", 100))
	infoColor.Fprintf(out, "Total: %d feeds\n", len(feedList))
}

// renderRunSummary displays per-feed counts and totals of a run
func renderRunSummary(result *core.AggregatedResult, feedList []core.FeedDescriptor, outputs []string) {
	fmt.Fprintln(out)
	printSection("Feeds")
	empty := 0
	for _, feed := range feedList {
		count := result.Stats.Feeds[feed.Name]
		if count == 0 {
			empty++
			fmt.Fprintf(out, "  %-25s %s\n", feed.Name+":", warningColor.Sprint("0 (failed or empty)"))
			continue
		}
		printField(feed.Name, strconv.Itoa(count))
	}

	fmt.Fprintln(out)
	printSection("Totals")
	printField("Total IOCs", strconv.Itoa(result.Stats.Total))
	printField("Unique IOCs", strconv.Itoa(result.Stats.Unique))
	printField("Last updated", formatTime(result.Stats.LastUpdated))

	fmt.Fprintln(out)
	printSection("Outputs")
	for _, p := range outputs {
		printField("Written", p)
	}

	fmt.Fprintln(out)
	if empty == 0 {
		successColor.Fprintf(out, "✓ Aggregated %d unique IOCs from %d feeds\n", result.Stats.Unique, len(feedList))
	} else {
		warningColor.Fprintf(out, "⚠ Aggregated %d unique IOCs, %d/%d feeds contributed nothing\n",
			result.Stats.Unique, empty, len(feedList))
	}
}

// renderCacheStats displays feed cache statistics
func renderCacheStats(stats cache.Stats) {
	printSection("Feed Cache")
	printField("Backend", stats.Backend)
	printField("Codec", stats.Codec)
	printField("Entries", strconv.Itoa(stats.Entries))
	printField("Expiry", stats.TTL.String())
}

// printSection prints a section header
func printSection(title string) {
	headerColor.Fprintf(out, "  %s\n", title)
	headerColor.Fprintln(out, "  "+strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(out, "  %-25s %s\n", key+":", value)
}

// formatTime formats a timestamp
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}
