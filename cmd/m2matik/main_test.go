package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/estimate"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

const sampleTable = "../../data/prisliste.json"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--table", sampleTable))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseSelection_YAMLRenovation(t *testing.T) {
	sel, err := parseSelection([]byte(`
type: renovering
postcode: 2100
basement: true
items:
  - key: maling
    areaM2: 80
    tier: lav
    picks: [paneler]
  - key: bad
    step: 4
`))
	require.NoError(t, err)

	assert.Equal(t, estimate.ProjectRenovation, sel.Type)
	require.Len(t, sel.Renovation.Items, 2)
	assert.Equal(t, pricing.TierLav, sel.Renovation.Items[0].Tier)
	require.NotNil(t, sel.Renovation.Items[1].Step)
	assert.Equal(t, 4.0, *sel.Renovation.Items[1].Step)
	assert.Equal(t, 2100, sel.Renovation.Postcode)
	assert.True(t, sel.Renovation.Basement)
}

func TestParseSelection_JSONAddition(t *testing.T) {
	sel, err := parseSelection([]byte(`{"type": "Tilbygning", "areaM2": 30, "roofType": "Valmtag", "outlets": 4, "postcode": 8000}`))
	require.NoError(t, err)

	assert.Equal(t, estimate.ProjectAddition, sel.Type)
	assert.Equal(t, 30.0, sel.Addition.AreaM2)
	assert.Equal(t, "Valmtag", sel.Addition.RoofType)
	assert.Equal(t, 4, sel.Addition.Outlets)
	assert.Equal(t, 8000, sel.Addition.Postcode)
}

func TestParseSelection_Errors(t *testing.T) {
	_, err := parseSelection([]byte(`type: garage`))
	assert.ErrorContains(t, err, "garage")

	_, err = parseSelection([]byte(`type: tilbygning
step: 9`))
	assert.ErrorContains(t, err, "invalid tilbygning selection")

	_, err = parseSelection([]byte(`type: renovering
items:
  - areaM2: 10`))
	assert.ErrorContains(t, err, "invalid renovering selection")

	_, err = parseSelection([]byte("type: [unterminated"))
	assert.Error(t, err)
}

func TestEstimateCommand_JSON(t *testing.T) {
	path := writeFile(t, "valg.yaml", "type: renovering\nitems:\n  - key: maling\n    areaM2: 80\n    tier: lav\n")

	out, err := runCLI(t, "estimate", path, "--json")
	require.NoError(t, err)

	var res estimate.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, int64(72200), res.Subtotal)
	assert.Equal(t, res.Subtotal, res.AfterPostnr)
	assert.GreaterOrEqual(t, res.Total, res.AfterPostnr)
}

func TestEstimateCommand_TextAndWorkbook(t *testing.T) {
	path := writeFile(t, "valg.json", `{"type":"renovering","postcode":2100,"items":[{"key":"maling","areaM2":80,"tier":"lav"},{"key":"sauna"}]}`)
	xlsx := filepath.Join(t.TempDir(), "estimat.xlsx")

	out, err := runCLI(t, "estimate", path, "--xlsx", xlsx)
	require.NoError(t, err)

	assert.Contains(t, out, "Prisoverslag: renovering")
	assert.Contains(t, out, "72.200 kr.")
	assert.Contains(t, out, "Efter postnummer, Hovedstaden")
	assert.Contains(t, out, "[sauna] missing price row")

	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestLintCommand(t *testing.T) {
	out, err := runCLI(t, "lint")
	require.Error(t, err)
	assert.Contains(t, out, "ISSUES (1)")
	assert.Contains(t, out, "postnrFaktorer[4]")
}

func TestPostnrCommand(t *testing.T) {
	out, err := runCLI(t, "postnr", "8000")
	require.NoError(t, err)
	assert.Equal(t, "8000: factor 1,06 (8000-8299, Aarhus)\n", out)

	out, err = runCLI(t, "postnr", "4000")
	require.NoError(t, err)
	assert.Equal(t, "4000: no postal rule, factor 1,00\n", out)

	_, err = runCLI(t, "postnr", "postkontor")
	assert.Error(t, err)
}

func TestExecute_PrintsErrorOnce(t *testing.T) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"postnr", "postkontor", "--table", sampleTable})

	assert.Equal(t, 1, execute(cmd))
	assert.Equal(t, "m2matik: postcode \"postkontor\" must be a number between 0 and 9999\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestExecute_Success(t *testing.T) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"postnr", "8000", "--table", sampleTable})

	assert.Equal(t, 0, execute(cmd))
	assert.Empty(t, errOut.String())
}
