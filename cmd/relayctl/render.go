package main

import (
	"fmt"
	"io"
	"strconv"

	"chat-relay/client"
	"chat-relay/domain/group"
	"chat-relay/observability"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type printer struct {
	out     io.Writer
	colours bool
}

func newPrinter(out io.Writer, colours bool) *printer {
	return &printer{out: out, colours: colours}
}

func (p *printer) paint(c color.Color, s string) string {
	if !p.colours {
		return s
	}
	return c.Render(s)
}

func (p *printer) Success(text string) {
	_, _ = fmt.Fprintln(p.out, p.paint(color.Green, text))
}

// Reply prints a Notification, and turns an Error frame into a returned error.
func (p *printer) Reply(frame group.Frame) error {
	if frame.Event == group.EventError {
		_, _ = fmt.Fprintln(p.out, p.paint(color.Red, client.Text(frame)))
		return fmt.Errorf("relay refused the request: %s", client.Text(frame))
	}
	p.Success(client.Text(frame))
	return nil
}

// Frame prints one pushed frame of a listening session.
func (p *printer) Frame(frame group.Frame) {
	switch frame.Event {
	case group.EventReceiveMessage:
		if len(frame.Args) < 3 {
			return
		}
		_, _ = fmt.Fprintf(p.out, "%s %s: %v\n",
			p.paint(color.Gray, fmt.Sprint(frame.Args[2])),
			p.paint(color.Cyan, fmt.Sprint(frame.Args[0])),
			frame.Args[1])
	case group.EventNotification:
		_, _ = fmt.Fprintln(p.out, p.paint(color.Yellow, client.Text(frame)))
	case group.EventError:
		_, _ = fmt.Fprintln(p.out, p.paint(color.Red, client.Text(frame)))
	default:
		_, _ = fmt.Fprintf(p.out, "%s %v\n", frame.Event, frame.Args)
	}
}

func (p *printer) History(entries []group.HistoryEntry) {
	table := p.table([]string{"Sent at", "Sender", "Message"})
	for _, e := range entries {
		table.Append([]string{e.SentAt, e.Sender, e.Message})
	}
	table.Render()
	_, _ = fmt.Fprintf(p.out, "%d message(s)\n", len(entries))
}

func (p *printer) Stats(s observability.Snapshot) {
	table := p.table([]string{"Metric", "Value"})
	rows := [][]string{
		{"uptime", s.Uptime},
		{"active connections", strconv.FormatInt(s.ActiveConnections, 10)},
		{"total connections", strconv.FormatUint(s.TotalConnections, 10)},
		{"errored closes", strconv.FormatUint(s.ErroredCloses, 10)},
		{"groups created", strconv.FormatUint(s.GroupsCreated, 10)},
		{"joins", strconv.FormatUint(s.Joins, 10)},
		{"leaves", strconv.FormatUint(s.Leaves, 10)},
		{"messages accepted", strconv.FormatUint(s.MessagesAccepted, 10)},
		{"censored messages", strconv.FormatUint(s.CensoredMessages, 10)},
		{"internal faults", strconv.FormatUint(s.InternalFaults, 10)},
		{"worker restarts", strconv.FormatUint(s.WorkerRestarts, 10)},
		{"process status", s.Process.Status},
		{"process cpu %", strconv.FormatFloat(s.Process.CPUPercent, 'f', 2, 64)},
		{"process rss bytes", strconv.FormatUint(s.Process.RSSBytes, 10)},
	}
	table.AppendBulk(rows)
	table.Render()
}

func (p *printer) table(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
