package adapter

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoverageJSON(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    CoverageReport
		wantErr bool
	}{
		{
			name: "leading noise before the document",
			out: `Wrote JSON report to stdout
{"files": {"target.py": {"executed_lines": [1, 2], "missing_lines": [4],
 "summary": {"percent_covered": 66.5, "num_statements": 3}}}}`,
			want: CoverageReport{Percent: 66.5, Executed: []int{1, 2}, Missing: []int{4}},
		},
		{
			name: "no statements counts as fully covered",
			out:  `{"files": {"/tmp/x/target.py": {"executed_lines": [], "missing_lines": [], "summary": {"percent_covered": 0, "num_statements": 0}}}}`,
			want: CoverageReport{Percent: 100, Executed: []int{}, Missing: []int{}},
		},
		{
			name: "driver only",
			out:  `{"files": {"driver.py": {"executed_lines": [1], "missing_lines": [], "summary": {"percent_covered": 100, "num_statements": 1}}}}`,
			want: CoverageReport{},
		},
		{
			name:    "not json",
			out:     "No data to report.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCoverageJSON([]byte(tt.out))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrCoverageUnavailable)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalCoverageAdapter_Measure(t *testing.T) {
	if err := exec.Command("python3", "-c", "import coverage").Run(); err != nil {
		t.Skip("coverage.py not available")
	}

	adapter := NewLocalCoverageAdapter("python3", 30*time.Second, 10*time.Second, NewLocalSourceFSAdapter())
	ctx := context.Background()

	target := "def f(x):\n    if x:\n        return 1\n    return 2\n\nf(True)\n"

	before, err := adapter.Measure(ctx, CoverageRequest{Target: target})
	require.NoError(t, err)
	assert.Less(t, before.Percent, 100.0)
	assert.Contains(t, before.Missing, 4)

	driver := "import os\n" +
		"__tc_path = os.path.abspath('target.py')\n" +
		"exec(compile(open(__tc_path).read(), __tc_path, 'exec'), globals())\n" +
		"try:\n    f(x=False)\nexcept BaseException:\n    pass\n"

	after, err := adapter.Measure(ctx, CoverageRequest{Target: target, Driver: driver})
	require.NoError(t, err)
	assert.Greater(t, after.Percent, before.Percent)
	assert.Empty(t, after.Missing)
}

func TestLocalCoverageAdapter_MissingInterpreter(t *testing.T) {
	adapter := NewLocalCoverageAdapter("tcoracle-no-such-python", time.Second, time.Second, NewLocalSourceFSAdapter())

	_, err := adapter.Measure(context.Background(), CoverageRequest{Target: "x = 1\n"})
	require.ErrorIs(t, err, ErrCoverageUnavailable)
}
