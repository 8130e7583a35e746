package report_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alnstats/alnstats/report"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestReport(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "report.pdf")

	rep := report.New(path)
	assert.NoError(t, rep.Line("coverage", "Scaled position", "Fragment coverage",
		report.Series{Name: "+", X: []float64{0, 1, 2}, Y: []float64{1, 4, 2}},
		report.Series{Name: "-", X: []float64{0, 1, 2}, Y: []float64{0, 1, 0}}))
	assert.NoError(t, rep.Histogram("cov80=0.75", "Reference coverage", "Count",
		[]float64{0.1, 0.5, 0.9, 0.9, 1.2}, 10))
	assert.NoError(t, rep.Bars("Basewise statistics", "Type", "Count",
		[]string{"match", "mismatch"}, []float64{100, 5}))
	assert.NoError(t, rep.Regression("bias", "GC_content", "logCount",
		[]float64{0.3, 0.4, 0.5}, []float64{1, 2, 3}, 0.5, 2))
	expect.EQ(t, rep.Pages(), 4)
	assert.NoError(t, rep.Close())

	info, err := os.Stat(path)
	assert.NoError(t, err)
	expect.True(t, info.Size() > 0)
}

func TestReportSeriesMismatch(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	rep := report.New(filepath.Join(tempDir, "bad.pdf"))
	err := rep.Line("t", "x", "y", report.Series{X: []float64{1}, Y: []float64{1, 2}})
	expect.HasSubstr(t, err.Error(), "length mismatch")
}
