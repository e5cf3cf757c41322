package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
	"github.com/dmitrijs2005/otpkeeper/internal/client/services"
	pb "github.com/dmitrijs2005/otpkeeper/internal/proto"
)

// codeRow is one line of the codes table, from the vault or the agent.
type codeRow struct {
	Hash      string
	Label     string
	Kind      string
	Code      string
	Remaining uint32
	Pinned    bool
	Error     string
}

func rowsFromVault(list []services.Code) []codeRow {
	rows := make([]codeRow, 0, len(list))
	for _, c := range list {
		r := codeRow{
			Hash:      c.Hash,
			Label:     c.Label,
			Kind:      c.Kind.String(),
			Code:      c.Code,
			Remaining: c.Remaining,
			Pinned:    c.Pinned,
		}
		if c.Err != nil {
			r.Error = c.Err.Error()
		}
		rows = append(rows, r)
	}
	return rows
}

func rowsFromAgent(list []pb.Code) []codeRow {
	rows := make([]codeRow, 0, len(list))
	for _, c := range list {
		rows = append(rows, codeRow(c))
	}
	return rows
}

func pinMark(pinned bool) string {
	if pinned {
		return "*"
	}
	return ""
}

// writeCodes prints rows numbered from 1 in their given order.
func writeCodes(w io.Writer, rows []codeRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No accounts")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, r := range rows {
		var code, left string
		switch {
		case r.Error != "":
			code, left = "------", r.Error
		case isCounterKind(r.Kind):
			code, left = r.Code, "counter"
		default:
			code, left = r.Code, (time.Duration(r.Remaining) * time.Second).String()
		}
		fmt.Fprintf(tw, "%d.%s\t%s\t%s\t%s\n", i+1, pinMark(r.Pinned), r.Label, code, left)
	}
	_ = tw.Flush()
}

// writeSummaries prints accounts without codes, numbered like writeCodes.
func writeSummaries(w io.Writer, list []services.Summary) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No accounts")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, s := range list {
		fmt.Fprintf(tw, "%d.%s\t%s\t%s\t%s\t%d digits\t%s\n",
			i+1, pinMark(s.Pinned), s.Label, s.Kind, s.Algorithm, s.Digits, shortHash(s.Hash))
	}
	_ = tw.Flush()
}

func isCounterKind(name string) bool {
	k, err := models.ParseKind(name)
	return err == nil && k.IsCounterBased()
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
