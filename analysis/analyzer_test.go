package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audit-automate/internal/types"
	"audit-automate/llm"
	"audit-automate/metrics"
	"audit-automate/report"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	replies  map[string]string
	err      error
	requests []llm.Request
}

func (p *fakeProvider) Analyze(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	for marker, reply := range p.replies {
		if strings.Contains(req.PageText, marker) {
			return &llm.Response{Content: reply}, nil
		}
	}
	return &llm.Response{Content: "**Title Actual:** generic"}, nil
}

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-1" }

type fixture struct {
	dir      string
	config   *types.Config
	report   *report.RunReport
	provider *fakeProvider
	analyzer *Analyzer
	targets  []types.ProductTarget
}

func newFixture(t *testing.T) *fixture {
	root := t.TempDir()
	f := &fixture{
		dir:      filepath.Join(root, "output"),
		config:   types.DefaultConfig(),
		report:   report.New(logrus.New()),
		provider: &fakeProvider{},
		targets: types.ParseTargets("https://www.homedepot.com/p/X\n\nhttps://www.lowes.com/pd/Y\n"),
	}
	f.config.PromptDir = filepath.Join(root, "prompts")
	require.NoError(t, os.MkdirAll(f.dir, 0755))
	require.NoError(t, os.MkdirAll(f.config.PromptDir, 0755))
	for _, name := range []string{"prompt_homedepot.txt", "prompt_lowes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(f.config.PromptDir, name), []byte("Audit "+name), 0644))
	}
	f.analyzer = NewAnalyzer(f.config, logrus.New(), f.provider, f.report, metrics.NewRecorder())
	return f
}

func (f *fixture) writeArtifacts(t *testing.T, target types.ProductTarget, text string) {
	base := filepath.Join(f.dir, target.BaseName())
	require.NoError(t, os.WriteFile(base+".png", []byte("png-bytes"), 0644))
	require.NoError(t, os.WriteFile(base+".txt", []byte(text), 0644))
}

func TestAnalyzer_AnalyzeAll(t *testing.T) {
	f := newFixture(t)
	f.writeArtifacts(t, f.targets[0], "drill page")
	f.writeArtifacts(t, f.targets[1], "saw page")
	f.provider.replies = map[string]string{
		"drill": "**Link:** https://wrong.example.com\n**Title Actual:** Drill",
		"saw":   "**Title Actual:** Saw",
	}

	passed, failed := f.analyzer.AnalyzeAll(context.Background(), f.dir, f.targets, nil)

	assert.Equal(t, 2, passed)
	assert.Equal(t, 0, failed)
	require.Len(t, f.provider.requests, 2)
	assert.Equal(t, "Audit prompt_homedepot.txt", f.provider.requests[0].Instruction)
	assert.Equal(t, []byte("png-bytes"), f.provider.requests[0].Image)

	r, err := ReadRecord(AnalysisPath(f.dir, f.targets[0]), nil)
	require.NoError(t, err)
	assert.Equal(t, "https://www.homedepot.com/p/X", r.Get("Link"))
	assert.Equal(t, "Home Depot", r.Get("Retailer"))
	assert.Equal(t, "Drill", r.Get("Title Actual"))

	e, ok := f.report.Entry("2_lowes")
	require.True(t, ok)
	assert.Equal(t, report.StatusPassed, e.Status)
}

func TestAnalyzer_ProviderFailureWritesFallback(t *testing.T) {
	f := newFixture(t)
	f.writeArtifacts(t, f.targets[0], "drill page")
	f.provider.err = errors.New("quota exceeded")

	err := f.analyzer.Analyze(context.Background(), f.dir, f.targets[0])

	require.Error(t, err)
	data, rerr := os.ReadFile(AnalysisPath(f.dir, f.targets[0]))
	require.NoError(t, rerr)
	assert.Len(t, strings.Split(string(data), "\n"), FieldCount)
	r := ParseRecord(string(data))
	assert.Equal(t, "https://www.homedepot.com/p/X", r.Get("Link"))
	assert.Contains(t, r.Get(FieldDescriptionActual), "ERROR PROCESSING")
	assert.Contains(t, r.Get(FieldDescriptionActual), "quota exceeded")

	e, _ := f.report.Entry("1_homedepot")
	assert.Equal(t, report.StatusFailed, e.Status)
}

func TestAnalyzer_MissingArtifactsStillProduceRecord(t *testing.T) {
	f := newFixture(t)

	passed, failed := f.analyzer.AnalyzeAll(context.Background(), f.dir, f.targets, types.Selection{2: true})

	assert.Equal(t, 0, passed)
	assert.Equal(t, 1, failed)
	assert.Empty(t, f.provider.requests)
	assert.FileExists(t, AnalysisPath(f.dir, f.targets[1]))
	assert.NoFileExists(t, AnalysisPath(f.dir, f.targets[0]))
}

func TestAnalyzer_UnknownRetailer(t *testing.T) {
	f := newFixture(t)
	target := types.ProductTarget{Index: 3, URL: "https://shop.example.com/p/1", Retailer: types.RetailerUnknown}

	err := f.analyzer.Analyze(context.Background(), f.dir, target)

	assert.ErrorContains(t, err, "unknown retailer")
	r, rerr := ReadRecord(AnalysisPath(f.dir, target), nil)
	require.NoError(t, rerr)
	assert.Equal(t, "Unknown", r.Get("Retailer"))
	assert.Equal(t, "https://shop.example.com/p/1", r.Get("Link"))
}

func TestAnalyzer_ReplacesPreviousAnalysis(t *testing.T) {
	f := newFixture(t)
	path := AnalysisPath(f.dir, f.targets[0])
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))
	f.writeArtifacts(t, f.targets[0], "drill page")

	require.NoError(t, f.analyzer.Analyze(context.Background(), f.dir, f.targets[0]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestAnalyzer_CachesPrompts(t *testing.T) {
	f := newFixture(t)
	f.writeArtifacts(t, f.targets[0], "drill page")

	require.NoError(t, f.analyzer.Analyze(context.Background(), f.dir, f.targets[0]))
	require.NoError(t, os.Remove(filepath.Join(f.config.PromptDir, "prompt_homedepot.txt")))
	require.NoError(t, f.analyzer.Analyze(context.Background(), f.dir, f.targets[0]))

	assert.Len(t, f.provider.requests, 2)
}

func TestRepair(t *testing.T) {
	f := newFixture(t)
	path := AnalysisPath(f.dir, f.targets[0])
	messy := "**Title Actual:** Drill\n**Retailer:** homedepot\n**Link:** wrong"
	require.NoError(t, os.WriteFile(path, []byte(messy), 0644))

	repaired, err := Repair(logrus.New(), f.dir, f.targets, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, Verify(string(data)))
	r := ParseRecord(string(data))
	assert.Equal(t, "https://www.homedepot.com/p/X", r.Get("Link"))
	assert.Equal(t, "Home Depot", r.Get("Retailer"))
	assert.Equal(t, "Drill", r.Get("Title Actual"))
}

func TestAnalyzer_ReplyWithoutFieldsIsFailure(t *testing.T) {
	f := newFixture(t)
	f.writeArtifacts(t, f.targets[0], "drill page")
	f.provider.replies = map[string]string{
		"drill": "I'm sorry, but I can't assess this product listing.",
	}

	err := f.analyzer.Analyze(context.Background(), f.dir, f.targets[0])

	assert.ErrorIs(t, err, ErrNoSchemaFields)
	data, rerr := os.ReadFile(AnalysisPath(f.dir, f.targets[0]))
	require.NoError(t, rerr)
	require.NoError(t, Verify(string(data)))
	r := ParseRecord(string(data))
	assert.True(t, IsFallback(r))
	assert.Equal(t, "https://www.homedepot.com/p/X", r.Get("Link"))
	assert.Contains(t, r.Get(FieldDescriptionActual), "no schema fields found")

	raw, rerr := os.ReadFile(filepath.Join(f.dir, "1_homedepot_raw_response.txt"))
	require.NoError(t, rerr)
	assert.Contains(t, string(raw), "RAW:\nI'm sorry")

	e, ok := f.report.Entry("1_homedepot")
	require.True(t, ok)
	assert.Equal(t, report.StatusFailed, e.Status)
}
