package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/dvloznov/financas-voz/internal/backup"
	"github.com/dvloznov/financas-voz/internal/dispatch"
	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/report"
)

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.Faint)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

// commandRunner is the part of the dispatcher the listen loop needs.
type commandRunner interface {
	HandleCommand(ctx context.Context, text string) (dispatch.Result, error)
}

// printingHandler runs commands and prints the reply of each one.
type printingHandler struct {
	commands commandRunner
	out      io.Writer
}

func (h *printingHandler) HandleText(ctx context.Context, text string) error {
	_, _ = fmt.Fprintln(h.out, faint.Sprintf("> %s", text))
	res, err := h.commands.HandleCommand(ctx, text)
	printResult(h.out, res)
	return err
}

func printResult(w io.Writer, res dispatch.Result) {
	line := fmt.Sprintf("%s [%s]", res.Action, res.View)
	if res.Message != "" {
		line += " " + res.Message
	}
	_, _ = fmt.Fprintln(w, line)
}

func printFilter(w io.Writer, f *domain.FilterCriteria) {
	if f == nil {
		return
	}
	var parts []string
	if f.StartDate != "" || f.EndDate != "" {
		parts = append(parts, fmt.Sprintf("%s..%s", f.StartDate, f.EndDate))
	}
	if f.Type != "" {
		parts = append(parts, string(f.Type))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, strings.Join(f.Categories, ", "))
	}
	_, _ = fmt.Fprintln(w, faint.Sprint("Filter: "+strings.Join(parts, " | ")))
}

func printTransactions(w io.Writer, txs []domain.Transaction) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Date"), bold.Sprint("Description"),
		bold.Sprint("Category"), bold.Sprint("Amount"), bold.Sprint("Status"))
	for _, tx := range txs {
		amount := "R$ " + tx.Amount.StringFixed(2)
		if tx.Type == domain.TransactionIncome {
			amount = green.Sprint("+" + amount)
		} else {
			amount = red.Sprint("-" + amount)
		}
		tbl.AddRow(tx.ID, tx.Day(), tx.Description, tx.Category, amount, transactionStatus(tx))
	}
	tbl.RightAlign(4)

	_, _ = fmt.Fprintln(w, tbl)
	_, _ = fmt.Fprintln(w, faint.Sprintf("%d transactions", len(txs)))
}

func transactionStatus(tx domain.Transaction) string {
	switch {
	case tx.IsDeleted && tx.IsChargeback:
		return "deleted, reversed"
	case tx.IsDeleted:
		return "deleted"
	case tx.IsChargeback:
		return "reversed"
	}
	return ""
}

func printCategories(w io.Writer, cats []domain.Category) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Name"), bold.Sprint("Type"))
	for _, c := range cats {
		tbl.AddRow(c.ID, c.Name, string(c.Type))
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func printAppointments(w io.Writer, appts []domain.Appointment) {
	if len(appts) == 0 {
		_, _ = fmt.Fprintln(w, faint.Sprint("Nothing scheduled."))
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Time"), bold.Sprint("Title"), bold.Sprint("Repeat"), bold.Sprint("Done"))
	for _, a := range appts {
		done := ""
		if a.IsCompleted {
			done = green.Sprint("✓")
		}
		repeat := string(a.Repeat)
		if a.Repeat == domain.RepeatNone || a.Repeat == "" {
			repeat = ""
		} else if a.RepeatEndDate != "" {
			repeat += " until " + a.RepeatEndDate
		}
		tbl.AddRow(a.ID, a.Time, a.Title, repeat, done)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func printSummary(w io.Writer, s report.Summary) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Income"), green.Sprint("R$ "+s.Income.StringFixed(2)))
	tbl.AddRow(bold.Sprint("Expense"), red.Sprint("R$ "+s.Expense.StringFixed(2)))
	tbl.AddRow(bold.Sprint("Balance"), "R$ "+s.Balance.StringFixed(2))
	tbl.RightAlign(1)
	_, _ = fmt.Fprintln(w, tbl)

	if len(s.TopCategories) > 0 {
		_, _ = fmt.Fprintln(w, bold.Sprint("\nTop categories"))
		cats := uitable.New()
		cats.Separator = "  "
		for _, c := range s.TopCategories {
			cats.AddRow(c.Name, "R$ "+c.Total.StringFixed(2))
		}
		cats.RightAlign(1)
		_, _ = fmt.Fprintln(w, cats)
	}

	_, _ = fmt.Fprintln(w, bold.Sprint("\nLast days"))
	days := uitable.New()
	days.Separator = "  "
	for _, d := range s.LastDays {
		days.AddRow(d.Date, "R$ "+d.Total.StringFixed(2))
	}
	days.RightAlign(1)
	_, _ = fmt.Fprintln(w, days)
}

func printSnapshots(w io.Writer, snapshots []backup.SnapshotInfo) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Updated"), bold.Sprint("Size"), bold.Sprint("URI"))
	for _, s := range snapshots {
		tbl.AddRow(s.Updated.Local().Format("2006-01-02 15:04"), fmt.Sprintf("%d B", s.Size), s.URI)
	}
	tbl.RightAlign(1)
	_, _ = fmt.Fprintln(w, tbl)
}
