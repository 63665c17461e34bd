package forest

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented, human-readable rendering of the forest:
//
//	numpy [module] 0  {global: np}
//	  array [instance] 2
//	    call [call] 2  {global: np.array(3f1a...)}
func (f *Forest) Dump(w io.Writer) error {
	var err error
	var dump func(n *UsageNode, depth int)
	dump = func(n *UsageNode, depth int) {
		if err != nil {
			return
		}
		line := fmt.Sprintf("%s%s [%s] %d", strings.Repeat("  ", depth), n.ID, n.Kind, n.count)
		if aliases := formatAliases(n); aliases != "" {
			line += "  {" + aliases + "}"
		}
		if _, err = fmt.Fprintln(w, line); err != nil {
			return
		}
		for _, c := range n.children {
			dump(c, depth+1)
		}
	}
	for _, r := range f.roots {
		dump(r, 0)
	}
	return err
}

func formatAliases(n *UsageNode) string {
	var parts []string
	for _, ctx := range n.Contexts() {
		parts = append(parts, string(ctx)+": "+strings.Join(n.Aliases(ctx), ", "))
	}
	return strings.Join(parts, "; ")
}
