package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridcraft/xl2dd/internal/diag"
	"github.com/gridcraft/xl2dd/internal/model"
	"github.com/gridcraft/xl2dd/internal/tables"
)

func raw(tag tables.Tag, wb, sheet string, header []string, rows ...[]string) tables.RawTable {
	return tables.RawTable{
		Tag:    tag,
		Origin: tables.Origin{Workbook: wb, Sheet: sheet},
		Header: tables.NormalizeHeader(header),
		Rows:   rows,
	}
}

// baseModel declares the sets most stage tests need.
func baseModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	for _, r := range []string{"EU", "NA"} {
		m.Declare(model.SetDefinition{Set: "REG", Member: r})
	}
	m.Declare(model.SetDefinition{Set: "PRC", Member: "ECOAL"})
	m.Declare(model.SetDefinition{Set: "PRC", Member: "EWIND", Attrs: map[string]string{tables.ColTSLevel: "DAYNITE"}})
	m.Declare(model.SetDefinition{Set: "COM", Member: "ELC"})
	m.Declare(model.SetDefinition{Set: "TS", Member: "ANNUAL", Attrs: map[string]string{"Level": "ANNUAL"}})
	for _, ts := range []string{"WD", "WN", "SD", "SN"} {
		season := "WINTER"
		if ts[0] == 'S' {
			season = "SUMMER"
		}
		m.Declare(model.SetDefinition{Set: "TS", Member: ts,
			Attrs: map[string]string{"Season": season, "Level": "DAYNITE"}})
	}
	for _, y := range []string{"2020", "2030", "2040"} {
		m.Declare(model.SetDefinition{Set: "YEAR", Member: y})
	}
	return m
}

func mustRules(t *testing.T) *Rules {
	t.Helper()
	rules, err := LoadRules("")
	require.NoError(t, err)
	return rules
}

func TestNormalizeTable_SetTableWithAttrs(t *testing.T) {
	res := normalizeTable(raw(tables.TagTimeSlices, "b.xlsx", "TS",
		[]string{"TimeSlice", "Season", "Level"},
		[]string{"WD", "WINTER", "DAYNITE"},
		[]string{"", "WINTER", "DAYNITE"}, // empty member: dropped with warning
	), mustRules(t))

	require.Len(t, res.sets, 1)
	assert.Equal(t, "TS", res.sets[0].Set)
	assert.Equal(t, "WD", res.sets[0].Member)
	assert.Equal(t, "WINTER", res.sets[0].Attrs["Season"])
	assert.Len(t, res.diags.Warnings(), 1)
}

func TestNormalizeTable_DefaultYear(t *testing.T) {
	res := normalizeTable(raw(tables.TagDefaultYear, "b.xlsx", "Years",
		[]string{"Year"}, []string{"2020"}), mustRules(t))

	assert.Equal(t, "2020", res.defaultYear)
	// The default year is also declared a model year so facts resolved
	// onto it pass referential checks.
	require.Len(t, res.sets, 1)
	assert.Equal(t, "YEAR", res.sets[0].Set)
}

func TestNormalizeTable_PercentAndCommaList(t *testing.T) {
	res := normalizeTable(raw(tables.TagParameters, "b.xlsx", "P",
		[]string{"Attribute", "Region", "Process", "TimeSlice", "Year", "Value"},
		[]string{"AF", "EU, NA", "ECOAL", "ANNUAL", "2020", "85"},
	), mustRules(t))

	require.Len(t, res.facts, 2)
	assert.Equal(t, 0.85, res.facts[0].Value, "percent attributes are divided by 100")
	assert.Equal(t, "EU", res.facts[0].Key.Region)
	assert.Equal(t, "NA", res.facts[1].Key.Region)
	assert.Equal(t, tables.KindParameter, res.facts[0].Kind)
}

func TestNormalizeTable_UnknownAttributeDropped(t *testing.T) {
	res := normalizeTable(raw(tables.TagParameters, "b.xlsx", "P",
		[]string{"Attribute", "Region", "Process", "Year", "Value"},
		[]string{"NOT_AN_ATTR", "EU", "ECOAL", "2020", "1"},
		[]string{"NCAP_COST", "EU", "ECOAL", "2020", "oops"},
	), mustRules(t))

	assert.Empty(t, res.facts)
	assert.Len(t, res.diags.Warnings(), 2)
}

func TestNormalizeTable_ScenarioEmitsParameterFacts(t *testing.T) {
	tbl := raw(tables.TagScenario, "scen.xlsx", "S",
		[]string{"Attribute", "Process", "Year", "Value", "TSLvl"},
		[]string{"AF", "ECOAL", "2020", "90", "WD"})
	tbl.Origin.RegionHint = "EU"

	res := normalizeTable(tbl, mustRules(t))
	require.Len(t, res.facts, 1)
	assert.Equal(t, tables.KindParameter, res.facts[0].Kind,
		"scenario rows must collide with base facts in the overlay")
	assert.Equal(t, "WD", res.facts[0].TSDefault)
	assert.Equal(t, "EU", res.facts[0].RegionHint)
}

func TestNormalizeTable_Topology(t *testing.T) {
	res := normalizeTable(raw(tables.TagTopology, "b.xlsx", "Top",
		[]string{"Process", "Commodity", "IO"},
		[]string{"ECOAL", "COA", "IN"},
		[]string{"ECOAL", "ELC", "OUT"},
		[]string{"ECOAL", "ELC", "SIDEWAYS"},
	), mustRules(t))

	require.Len(t, res.facts, 2)
	assert.Equal(t, "TOP_IN", res.facts[0].Key.Param)
	assert.Equal(t, "TOP_OUT", res.facts[1].Key.Param)
	assert.Equal(t, tables.KindMapping, res.facts[0].Kind)
	assert.Len(t, res.diags.Warnings(), 1)
}

func TestResolveDefaults_PrecedenceBranches(t *testing.T) {
	rules := mustRules(t)

	t.Run("process level beats global default", func(t *testing.T) {
		m := baseModel(t)
		// ACT_BND has no attribute-level time slice; EWIND declares
		// TSLvl DAYNITE, which must win over the global ANNUAL.
		m.Append(model.FactRow{Kind: tables.KindParameter,
			Key: model.Key{Param: "ACT_BND", Region: "EU", Process: "EWIND", Year: "2020"}, Value: 0.9})
		var c diag.Collector
		ResolveDefaults(m, rules, &c)
		require.Len(t, m.Log, 1)
		assert.Equal(t, "DAYNITE", m.Log[0].Key.TimeSlice)
	})

	t.Run("scenario default beats process level", func(t *testing.T) {
		m := baseModel(t)
		m.Append(model.FactRow{Kind: tables.KindParameter, TSDefault: "WD",
			Key: model.Key{Param: "AF", Region: "EU", Process: "EWIND", Year: "2020"}, Value: 0.9})
		var c diag.Collector
		ResolveDefaults(m, rules, &c)
		assert.Equal(t, "WD", m.Log[0].Key.TimeSlice)
	})

	t.Run("global default when nothing else applies", func(t *testing.T) {
		m := baseModel(t)
		m.Append(model.FactRow{Kind: tables.KindParameter,
			Key: model.Key{Param: "ACT_BND", Region: "EU", Process: "ECOAL", Year: "2020"}, Value: 5})
		var c diag.Collector
		ResolveDefaults(m, rules, &c)
		assert.Equal(t, "ANNUAL", m.Log[0].Key.TimeSlice)
	})

	t.Run("missing year with no default rejects the row", func(t *testing.T) {
		m := baseModel(t)
		m.Append(model.FactRow{Kind: tables.KindParameter,
			Key: model.Key{Param: "NCAP_COST", Region: "EU", Process: "ECOAL"}, Value: 100})
		var c diag.Collector
		ResolveDefaults(m, rules, &c)
		assert.Empty(t, m.Log)
		require.Len(t, c.Warnings(), 1)
		assert.Contains(t, c.Warnings()[0].Message, "no default year")
	})

	t.Run("region falls back to hint then wildcard", func(t *testing.T) {
		m := baseModel(t)
		m.DefaultYear = "2020"
		m.Append(
			model.FactRow{Kind: tables.KindParameter, RegionHint: "EU",
				Key: model.Key{Param: "NCAP_COST", Process: "ECOAL", Year: "2020"}, Value: 1},
			model.FactRow{Kind: tables.KindParameter,
				Key: model.Key{Param: "NCAP_COST", Process: "ECOAL", Year: "2030"}, Value: 2},
		)
		var c diag.Collector
		ResolveDefaults(m, rules, &c)
		assert.Equal(t, "EU", m.Log[0].Key.Region)
		assert.Equal(t, "ALL", m.Log[1].Key.Region)
	})
}

func TestResolveDefaults_Idempotent(t *testing.T) {
	rules := mustRules(t)
	m := baseModel(t)
	m.DefaultYear = "2020"
	m.Append(model.FactRow{Kind: tables.KindParameter,
		Key: model.Key{Param: "AF", Process: "ECOAL"}, Value: 0.8})

	var c diag.Collector
	ResolveDefaults(m, rules, &c)
	after := append([]model.FactRow(nil), m.Log...)

	ResolveDefaults(m, rules, &c)
	assert.Equal(t, after, m.Log)
	assert.Empty(t, c.Fatals())
}

func TestExpand_Tokens(t *testing.T) {
	t.Run("ALL expands to every member", func(t *testing.T) {
		m := baseModel(t)
		m.Append(model.FactRow{Kind: tables.KindParameter,
			Key: model.Key{Param: "NCAP_COST", Region: "ALL", Process: "ECOAL", Year: "2020"}, Value: 1})
		var c diag.Collector
		Expand(m, &c)
		require.Len(t, m.Log, 2)
		assert.Equal(t, "EU", m.Log[0].Key.Region)
		assert.Equal(t, "NA", m.Log[1].Key.Region)
	})

	t.Run("year range selects declared years inclusively", func(t *testing.T) {
		m := baseModel(t)
		m.Append(model.FactRow{Kind: tables.KindParameter,
			Key: model.Key{Param: "NCAP_COST", Region: "EU", Process: "ECOAL", Year: "2020-2030"}, Value: 1})
		var c diag.Collector
		Expand(m, &c)
		require.Len(t, m.Log, 2)
		assert.Equal(t, "2020", m.Log[0].Key.Year)
		assert.Equal(t, "2030", m.Log[1].Key.Year)
	})

	t.Run("group token matches members by attribute", func(t *testing.T) {
		m := baseModel(t)
		m.Append(model.FactRow{Kind: tables.KindParameter,
			Key: model.Key{Param: "AF", Region: "EU", Process: "ECOAL", TimeSlice: "WINTER", Year: "2020"}, Value: 0.8})
		var c diag.Collector
		Expand(m, &c)
		require.Len(t, m.Log, 2)
		assert.Equal(t, "WD", m.Log[0].Key.TimeSlice)
		assert.Equal(t, "WN", m.Log[1].Key.TimeSlice)
	})

	t.Run("empty intersection drops the row with one warning", func(t *testing.T) {
		m := baseModel(t)
		m.Append(model.FactRow{Kind: tables.KindParameter,
			Key: model.Key{Param: "NCAP_COST", Region: "EU", Process: "ECOAL", Year: "2050-2060"}, Value: 1})
		var c diag.Collector
		Expand(m, &c)
		assert.Empty(t, m.Log)
		require.Len(t, c.Warnings(), 1)
		warning := c.Warnings()[0].Message
		assert.Contains(t, warning, "parameter")
		assert.Contains(t, warning, "year")
		assert.Contains(t, warning, `"2050-2060"`)
	})

	t.Run("no wildcard survives expansion", func(t *testing.T) {
		m := baseModel(t)
		m.Append(model.FactRow{Kind: tables.KindParameter,
			Key: model.Key{Param: "AF", Region: "ALL", Process: "ECOAL", TimeSlice: "DAYNITE", Year: "2020-2040"}, Value: 0.8})
		var c diag.Collector
		Expand(m, &c)
		for _, f := range m.Log {
			for _, d := range model.Dimensions {
				v := f.Key.Dim(d)
				if v == "" {
					continue
				}
				assert.False(t, model.IsWildcard(d, v), "unexpanded %s token %q", d, v)
				assert.True(t, m.Set(d.SetName()).Has(v))
			}
		}
		// 2 regions x 4 daynite slices x 3 years
		assert.Len(t, m.Log, 24)
	})
}

func TestValidate_DanglingReferenceIsFatal(t *testing.T) {
	m := baseModel(t)
	m.Append(model.FactRow{Kind: tables.KindParameter,
		Key: model.Key{Param: "NCAP_COST", Region: "EU", Process: "NOSUCH", Year: "2020"}, Value: 1})

	var c diag.Collector
	Validate(m, mustRules(t), &c)
	require.True(t, c.HasFatal())
	assert.Contains(t, c.Fatals()[0].Message, "NOSUCH")
}

func TestValidate_CleanModelPasses(t *testing.T) {
	m := baseModel(t)
	m.Append(model.FactRow{Kind: tables.KindParameter,
		Key: model.Key{Param: "NCAP_COST", Region: "EU", Process: "ECOAL", Year: "2020"}, Value: 1})

	var c diag.Collector
	Validate(m, mustRules(t), &c)
	assert.False(t, c.HasFatal())
	assert.Len(t, m.Facts, 1)
}

// stubExtractor serves pre-built tables keyed by workbook base name.
type stubExtractor struct {
	books map[string][]tables.RawTable
}

func (s *stubExtractor) Extract(_ context.Context, path string) ([]tables.RawTable, error) {
	return s.books[filepath.Base(path)], nil
}

// touchWorkbooks creates empty placeholder files so workbook listing
// succeeds; the stub extractor never opens them.
func touchWorkbooks(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
}

func TestRun_OverlayAcrossWorkbooks(t *testing.T) {
	dir := t.TempDir()
	touchWorkbooks(t, dir, "base.xlsx", "override.xlsx")

	base := []tables.RawTable{
		raw(tables.TagRegions, "base.xlsx", "Sets", []string{"Region"}, []string{"A"}, []string{"B"}),
		raw(tables.TagProcesses, "base.xlsx", "Sets", []string{"Process"}, []string{"ECOAL"}),
		raw(tables.TagMilestoneYears, "base.xlsx", "Sets", []string{"Year"}, []string{"2020"}),
		raw(tables.TagParameters, "base.xlsx", "Params",
			[]string{"Attribute", "Region", "Process", "Year", "Value"},
			[]string{"NCAP_COST", "ALL", "ECOAL", "2020", "1000"}),
	}
	override := []tables.RawTable{
		raw(tables.TagParameters, "override.xlsx", "Params",
			[]string{"Attribute", "Region", "Process", "Year", "Value"},
			[]string{"NCAP_COST", "A", "ECOAL", "2020", "1200"}),
	}

	res, err := Run(context.Background(), Options{
		InputDir:  dir,
		Workbooks: []string{"base.xlsx", "override.xlsx"},
		Extractor: &stubExtractor{books: map[string][]tables.RawTable{
			"base.xlsx": base, "override.xlsx": override,
		}},
	})
	require.NoError(t, err)
	require.False(t, res.Diags.HasFatal(), "diags: %v", res.Diags.All())

	facts := res.Model.SortedFacts()
	require.Len(t, facts, 2)

	byRegion := map[string]model.FactRow{}
	for _, f := range facts {
		byRegion[f.Key.Region] = f
	}
	assert.Equal(t, 1200.0, byRegion["A"].Value, "later workbook wins for region A")
	assert.Equal(t, "override.xlsx", byRegion["A"].Source.Workbook)
	assert.Equal(t, 1000.0, byRegion["B"].Value, "region B keeps the base value")

	// The displaced wildcard-expanded row for A is reported, and only it.
	require.Len(t, res.Diags.Warnings(), 1)
	assert.Contains(t, res.Diags.Warnings()[0].Message, "shadowed")
}

func TestRun_RegionRestriction(t *testing.T) {
	dir := t.TempDir()
	touchWorkbooks(t, dir, "base.xlsx")

	books := map[string][]tables.RawTable{"base.xlsx": {
		raw(tables.TagRegions, "base.xlsx", "Sets", []string{"Region"}, []string{"A"}, []string{"B"}, []string{"C"}),
		raw(tables.TagProcesses, "base.xlsx", "Sets", []string{"Process"}, []string{"ECOAL"}),
		raw(tables.TagMilestoneYears, "base.xlsx", "Sets", []string{"Year"}, []string{"2020"}),
		raw(tables.TagParameters, "base.xlsx", "Params",
			[]string{"Attribute", "Region", "Process", "Year", "Value"},
			[]string{"NCAP_COST", "ALL", "ECOAL", "2020", "1000"},
			[]string{"NCAP_COST", "C", "ECOAL", "2020", "900"}),
	}}

	res, err := Run(context.Background(), Options{
		InputDir:  dir,
		Regions:   []string{"A", "B"},
		Extractor: &stubExtractor{books: books},
	})
	require.NoError(t, err)
	require.False(t, res.Diags.HasFatal())

	facts := res.Model.SortedFacts()
	require.Len(t, facts, 2)
	for _, f := range facts {
		assert.NotEqual(t, "C", f.Key.Region)
	}
}

func TestRun_FatalOnDanglingMember(t *testing.T) {
	dir := t.TempDir()
	touchWorkbooks(t, dir, "base.xlsx")

	books := map[string][]tables.RawTable{"base.xlsx": {
		raw(tables.TagRegions, "base.xlsx", "Sets", []string{"Region"}, []string{"A"}),
		raw(tables.TagMilestoneYears, "base.xlsx", "Sets", []string{"Year"}, []string{"2020"}),
		raw(tables.TagParameters, "base.xlsx", "Params",
			[]string{"Attribute", "Region", "Process", "Year", "Value"},
			[]string{"NCAP_COST", "A", "UNDECLARED", "2020", "1"}),
	}}

	res, err := Run(context.Background(), Options{
		InputDir:  dir,
		Extractor: &stubExtractor{books: books},
	})
	require.NoError(t, err)
	assert.True(t, res.Diags.HasFatal())
}

func TestRun_Deterministic(t *testing.T) {
	dir := t.TempDir()
	touchWorkbooks(t, dir, "base.xlsx")

	books := map[string][]tables.RawTable{"base.xlsx": {
		raw(tables.TagRegions, "base.xlsx", "Sets", []string{"Region"}, []string{"A"}, []string{"B"}),
		raw(tables.TagProcesses, "base.xlsx", "Sets", []string{"Process"}, []string{"ECOAL"}, []string{"EWIND"}),
		raw(tables.TagMilestoneYears, "base.xlsx", "Sets", []string{"Year"}, []string{"2020"}, []string{"2030"}),
		raw(tables.TagParameters, "base.xlsx", "Params",
			[]string{"Attribute", "Region", "Process", "Year", "Value"},
			[]string{"NCAP_COST", "ALL", "ECOAL, EWIND", "2020-2030", "7"}),
	}}

	run := func() []model.FactRow {
		res, err := Run(context.Background(), Options{
			InputDir:  dir,
			Extractor: &stubExtractor{books: books},
			Workers:   4,
		})
		require.NoError(t, err)
		return res.Model.SortedFacts()
	}

	first := run()
	require.Len(t, first, 8)
	assert.Equal(t, first, run())
}
