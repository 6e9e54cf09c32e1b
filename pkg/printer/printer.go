package printer

import (
	"fmt"
	"io"
	"strings"

	apperrors "github.com/berkguzel/pstar/internal/errors"
	"github.com/berkguzel/pstar/internal/options"
	"github.com/berkguzel/pstar/pkg/types"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

const (
	policyWidth      = 30
	kindWidth        = 7
	minResourceWidth = 24
	verdictWidth     = 12
)

type Printer struct {
	writer      io.Writer
	onlyFlagged bool
}

func New(w io.Writer, opts *options.Options) *Printer {
	if opts.NoColor {
		color.NoColor = true
	}
	return &Printer{
		writer:      w,
		onlyFlagged: opts.OnlyFlagged,
	}
}

// PrintVerdict prints the result of verifying a single document: true when
// the first statement is scoped, false when it applies to every resource.
func (p *Printer) PrintVerdict(acceptable bool) error {
	_, err := fmt.Fprintln(p.writer, acceptable)
	return err
}

// PrintReport prints one row per policy of the report.
func (p *Printer) PrintReport(report types.RoleReport) error {
	w := &errWriter{w: p.writer}

	if report.PodName != "" {
		w.printf("%s Pod: %s (Namespace: %s)\n", bold("→"), report.PodName, report.Namespace)
		w.printf("  Service Account: %s\n", report.ServiceAccount)
	}
	w.printf("  IAM Role: %s\n\n", report.IAMRole)

	if len(report.Verdicts) == 0 {
		w.printf("No policies attached to this role\n")
		return w.err
	}

	resourceWidth := minResourceWidth
	for _, v := range report.Verdicts {
		if n := len(formatResource(v)); n > resourceWidth {
			resourceWidth = n
		}
	}

	w.printf("%s\n", separator(resourceWidth))
	w.printf("| %-*s | %-*s | %-*s | %-*s |\n",
		policyWidth, "POLICY",
		kindWidth, "KIND",
		resourceWidth, "RESOURCE",
		verdictWidth, "VERDICT",
	)
	w.printf("%s\n", separator(resourceWidth))

	var malformed []types.PolicyVerdict
	for _, v := range report.Verdicts {
		if v.Err != nil {
			malformed = append(malformed, v)
		}
		if p.onlyFlagged && !v.Flagged() {
			continue
		}
		// Pad before coloring so escape codes don't break alignment.
		w.printf("| %-*s | %-*s | %-*s | %s |\n",
			policyWidth, truncateString(v.Name, policyWidth),
			kindWidth, v.Kind,
			resourceWidth, formatResource(v),
			verdictLabel(v),
		)
	}
	w.printf("%s\n", separator(resourceWidth))

	for _, v := range malformed {
		w.printf("%s %s: %s\n", yellow("⚠️"), v.Name, apperrors.UserFriendlyError(v.Err))
	}

	flagged := report.FlaggedCount()
	summary := fmt.Sprintf("%d of %d policies apply their first statement to all resources", flagged, len(report.Verdicts))
	if flagged > 0 {
		w.printf("\n%s %s\n", red("❌"), summary)
	} else {
		w.printf("\n%s %s\n", green("✅"), summary)
	}
	return w.err
}

func verdictLabel(v types.PolicyVerdict) string {
	switch {
	case v.Err != nil:
		return yellow(fmt.Sprintf("%-*s", verdictWidth, "malformed"))
	case v.Flagged():
		return red(fmt.Sprintf("%-*s", verdictWidth, "all (*)"))
	default:
		return green(fmt.Sprintf("%-*s", verdictWidth, "scoped"))
	}
}

func formatResource(v types.PolicyVerdict) string {
	if v.Err != nil {
		return "-"
	}
	resource, ok := v.Resource.Get()
	if !ok {
		return "(none)"
	}
	if resource == "*" {
		return "* (all resources)"
	}
	return resource
}

func separator(resourceWidth int) string {
	return fmt.Sprintf("+%s+%s+%s+%s+",
		strings.Repeat("-", policyWidth+2),
		strings.Repeat("-", kindWidth+2),
		strings.Repeat("-", resourceWidth+2),
		strings.Repeat("-", verdictWidth+2),
	)
}

func truncateString(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
