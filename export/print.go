package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jaxxstorm/gitversion"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats understood by Print
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Print writes info to w in the given format. The text format prints one
// labeled line per field.
func Print(w io.Writer, info gitversion.BuildInfo, format string) error {
	switch format {
	case FormatText, "":
		_, err := fmt.Fprintf(w, "Version: %s\nTimestamp: %s\nGitHash: %s\nGitTimestamp: %s\n",
			info.Version, info.Timestamp, info.Hash(), info.CommitTime())
		return err
	case FormatTable:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Field", "Value"})
		t.AppendRows([]table.Row{
			{"Version", info.Version},
			{"Timestamp", info.Timestamp},
			{"GitHash", info.Hash()},
			{"GitTimestamp", info.CommitTime()},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	case FormatJSON:
		return json.NewEncoder(w).Encode(info)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
