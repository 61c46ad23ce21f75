package main

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/bft-labs/appkeeper/pkg/appkeeper"
)

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

func printStatus(w io.Writer, st appkeeper.Status) error {
	table := newTable(w)
	table.SetColumnSeparator(":")

	rows := [][]string{
		{"Application", st.ApplicationName},
		{"Initialized", yesNo(st.Initialized)},
		{"Table exists", yesNo(st.TableExists)},
		{"Oracle", runningOrNot(st.OracleRunning)},
		{"Workers", humanize.Comma(int64(st.Workers))},
	}
	if id := st.Identity; id != nil {
		rows = append(rows,
			[]string{"Application ID", id.ApplicationID},
			[]string{"Table", id.TableName},
			[]string{"Instance", id.InstanceName + " (" + id.InstanceID + ")"},
		)
	}
	if wm := st.Watermarks; wm != nil {
		rows = append(rows,
			[]string{"Max timestamp", strconv.FormatUint(wm.MaxTimestamp, 10)},
			[]string{"GC timestamp", strconv.FormatUint(wm.GCTimestamp, 10)},
		)
	}
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func printProperties(w io.Writer, props *appkeeper.Configuration) error {
	table := newTable(w)
	table.SetHeader([]string{"Property", "Value"})
	for _, k := range props.Keys() {
		table.Append([]string{k, props.Get(k)})
	}
	table.Render()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runningOrNot(b bool) string {
	if b {
		return "running"
	}
	return "stopped"
}
