package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
)

// formatModulesText formats CLIModule results as aligned columns.
func formatModulesText(w io.Writer, mods []CLIModule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tUSES\tPATHS\tFILES")
	for _, m := range mods {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", m.Module, m.Uses, m.Paths, m.Files)
	}
	tw.Flush()
}

// formatUsagesText formats CLIUsage results as aligned columns.
func formatUsagesText(w io.Writer, usages []CLIUsage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNT\tFILES\tKIND\tPATH")
	for _, u := range usages {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", u.Count, u.Files, u.Kind, u.Path)
	}
	tw.Flush()
}

// formatNodesText writes each tree indented by depth:
//
//	numpy [module] 2  {global: np}
//	  array [instance] 1
func formatNodesText(w io.Writer, nodes []CLINode, depth int) {
	for _, n := range nodes {
		line := fmt.Sprintf("%s%s [%s] %d", strings.Repeat("  ", depth), n.ID, n.Kind, n.Count)
		if aliases := formatAliasesText(n.Aliases); aliases != "" {
			line += "  {" + aliases + "}"
		}
		fmt.Fprintln(w, line)
		formatNodesText(w, n.Children, depth+1)
	}
}

func formatAliasesText(aliases map[string][]string) string {
	ctxs := make([]string, 0, len(aliases))
	for ctx := range aliases {
		ctxs = append(ctxs, ctx)
	}
	sort.Strings(ctxs)
	parts := make([]string, len(ctxs))
	for i, ctx := range ctxs {
		parts[i] = ctx + ": " + strings.Join(aliases[ctx], ", ")
	}
	return strings.Join(parts, "; ")
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tLINES\tPATH\tERROR")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", f.ID, f.Status, f.LineCount, f.Path, f.Error)
	}
	tw.Flush()
}

// formatRunsText formats CLIRun results as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tINDEXED\tSKIPPED\tFAILED\tNODES\tROOT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt, r.FilesIndexed, r.FilesSkipped, r.FilesFailed, r.Nodes, r.Root)
	}
	tw.Flush()
}

// formatValuesText prints report values one per line.
func formatValuesText(w io.Writer, values []any) {
	for _, v := range values {
		switch m := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, len(keys))
			for i, k := range keys {
				parts[i] = fmt.Sprintf("%s=%v", k, m[k])
			}
			fmt.Fprintln(w, strings.Join(parts, " "))
		default:
			fmt.Fprintln(w, v)
		}
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIModule:
		formatModulesText(w, v)
	case []CLIUsage:
		formatUsagesText(w, v)
	case []CLINode:
		formatNodesText(w, v, 0)
	case []CLIFile:
		formatFilesText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case []any:
		formatValuesText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIModule:
		return len(r)
	case []CLIUsage:
		return len(r)
	case []CLINode:
		return len(r)
	case []CLIFile:
		return len(r)
	case []CLIRun:
		return len(r)
	case []any:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
