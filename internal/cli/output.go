package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#6C7A89")
)

const dateLayout = "02/01/2006"

// printer writes styled output. Colors are dropped when w is not a terminal.
type printer struct {
	w       io.Writer
	title   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		title:   r.NewStyle().Bold(true).Foreground(colorAccent),
		success: r.NewStyle().Foreground(colorSuccess),
		warning: r.NewStyle().Foreground(colorWarning),
		failure: r.NewStyle().Foreground(colorError).Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
		header:  r.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		border:  r.NewStyle().Foreground(colorMuted),
	}
}

func (p *printer) Title(s string) {
	fmt.Fprintln(p.w, p.title.Render(s))
}

func (p *printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.success.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.warning.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.failure.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.w, p.muted.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Table renders rows under headers, or a muted note when rows is empty.
func (p *printer) Table(empty string, headers []string, rows [][]string) {
	if len(rows) == 0 {
		p.Muted("%s", empty)
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return p.cell
		})
	fmt.Fprintln(p.w, t.Render())
}

func (p *printer) Books(books []domain.Book) {
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{
			strconv.FormatInt(b.ID, 10),
			b.Title,
			b.Author,
			strconv.Itoa(b.Year),
			b.Category,
			yesNo(b.IsAvailable),
		})
	}
	p.Table("No books found.", []string{"ID", "Title", "Author", "Year", "Category", "Available"}, rows)
}

func (p *printer) Users(users []domain.User) {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Name,
			u.Email,
			u.Phone,
			formatDate(u.CreatedAt),
		})
	}
	p.Table("No users found.", []string{"ID", "Name", "Email", "Phone", "Registered"}, rows)
}

func (p *printer) Loans(loans []domain.Loan, now time.Time) {
	rows := make([][]string, 0, len(loans))
	for _, l := range loans {
		returned := "-"
		if l.ReturnDate != nil {
			returned = formatDate(*l.ReturnDate)
		}
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			l.BookTitle,
			l.UserName,
			formatDate(l.LoanDate),
			formatDate(l.DueDate),
			returned,
			loanStatus(l, now),
		})
	}
	p.Table("No loans found.", []string{"ID", "Book", "User", "Loaned", "Due", "Returned", "Status"}, rows)
}

func loanStatus(l domain.Loan, now time.Time) string {
	switch {
	case l.IsReturned:
		return "returned"
	case l.Overdue(now):
		return "overdue"
	default:
		return "active"
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
