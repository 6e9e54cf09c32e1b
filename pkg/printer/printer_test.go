package printer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/berkguzel/pstar/internal/errors"
	"github.com/berkguzel/pstar/internal/options"
	"github.com/berkguzel/pstar/pkg/policy"
	"github.com/berkguzel/pstar/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(buf *bytes.Buffer, onlyFlagged bool) *Printer {
	return New(buf, &options.Options{NoColor: true, OnlyFlagged: onlyFlagged})
}

func TestPrintVerdict(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	require.NoError(t, p.PrintVerdict(true))
	require.NoError(t, p.PrintVerdict(false))
	assert.Equal(t, "true\nfalse\n", buf.String())
}

var report = types.RoleReport{
	PodName:        "test-pod",
	Namespace:      "default",
	ServiceAccount: "test-sa",
	IAMRole:        "arn:aws:iam::123456789012:role/test-role",
	Verdicts: []types.PolicyVerdict{
		{Name: "admin", Kind: types.PolicyKindInline, Resource: policy.Some("*"), Acceptable: false},
		{Name: "reader", Kind: types.PolicyKindManaged, Resource: policy.Some("arn:aws:s3:::my-bucket/*"), Acceptable: true},
		{Name: "no-resource", Kind: types.PolicyKindManaged, Resource: policy.None(), Acceptable: true},
		{Name: "broken", Kind: types.PolicyKindInline, Err: apperrors.NewMalformedError(&policy.MalformedInputError{Reason: "invalid JSON"})},
	},
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestPrinter(&buf, false).PrintReport(report))
	out := buf.String()

	assert.Contains(t, out, "Pod: test-pod (Namespace: default)")
	assert.Contains(t, out, "Service Account: test-sa")
	assert.Contains(t, out, "IAM Role: arn:aws:iam::123456789012:role/test-role")
	assert.Contains(t, out, "| POLICY ")
	assert.Regexp(t, `\| admin +\| inline  \| \* \(all resources\) +\| all \(\*\) +\|`, out)
	assert.Regexp(t, `\| reader +\| managed \| arn:aws:s3:::my-bucket/\* +\| scoped +\|`, out)
	assert.Regexp(t, `\| no-resource +\| managed \| \(none\) +\| scoped +\|`, out)
	assert.Regexp(t, `\| broken +\| inline  \| - +\| malformed +\|`, out)
	assert.Contains(t, out, "broken: Malformed data: invalid JSON")
	assert.Contains(t, out, "1 of 4 policies apply their first statement to all resources")

	// Every table line has the same width.
	var widths []int
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "|") || strings.HasPrefix(line, "+") {
			widths = append(widths, len(line))
		}
	}
	require.NotEmpty(t, widths)
	for _, w := range widths {
		assert.Equal(t, widths[0], w)
	}
}

func TestPrintReport_OnlyFlagged(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestPrinter(&buf, true).PrintReport(report))
	out := buf.String()

	assert.Contains(t, out, "| admin ")
	assert.NotContains(t, out, "| reader ")
	assert.NotContains(t, out, "| no-resource ")
	assert.NotContains(t, out, "| broken ")
}

func TestPrintReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestPrinter(&buf, false).PrintReport(types.RoleReport{IAMRole: "test-role"}))

	assert.NotContains(t, buf.String(), "Pod:")
	assert.Contains(t, buf.String(), "No policies attached to this role")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed pipe")
}

func TestPrintReport_WriteError(t *testing.T) {
	p := New(failingWriter{}, &options.Options{NoColor: true})
	assert.EqualError(t, p.PrintReport(report), "closed pipe")
	assert.EqualError(t, p.PrintVerdict(true), "closed pipe")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 30))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
}
