package featurization

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/molgraph/pkg/errors"
)

func TestReadRows_DefaultColumns(t *testing.T) {
	in := "Inhibitor Name,SMILES,Inh Power\n" +
		"ethanol,CCO,1.25\n" +
		"benzene,c1ccccc1,\n" +
		"broken,C1CC,3\n"

	rows, err := ReadRows(strings.NewReader(in), "", DefaultLabelColumn)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "CCO", rows[0].SMILES)
	require.NotNil(t, rows[0].Label)
	assert.Equal(t, 1.25, *rows[0].Label)
	assert.Nil(t, rows[1].Label)
	assert.Equal(t, "C1CC", rows[2].SMILES)
	assert.Equal(t, 3.0, *rows[2].Label)
}

func TestReadRows_Unlabeled(t *testing.T) {
	in := "SMILES,Inh Power\nCCO,1\nCC,2\n"
	rows, err := ReadRows(strings.NewReader(in), "SMILES", "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Nil(t, r.Label)
	}
}

func TestReadRows_ByteOrderMarkAndQuotes(t *testing.T) {
	in := "\ufeffSMILES,label\n\"C(=O)O\",\"0.5\"\n"
	rows, err := ReadRows(strings.NewReader(in), "SMILES", "label")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C(=O)O", rows[0].SMILES)
	assert.Equal(t, 0.5, *rows[0].Label)
}

func TestReadRows_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		labelCol string
		detail   string
	}{
		{"empty input", "", "", "no header"},
		{"missing smiles column", "smiles_x,Inh Power\nCCO,1\n", "", `column "SMILES" not found`},
		{"missing label column", "SMILES\nCCO\n", DefaultLabelColumn, `column "Inh Power" not found`},
		{"bad label", "SMILES,Inh Power\nCCO,1\nCC,high\n", DefaultLabelColumn, "line 3"},
		{"NaN label", "SMILES,Inh Power\nCCO,0.5\nCCN,NaN\n", DefaultLabelColumn, `line 3: label "NaN" is not a finite float32`},
		{"infinite label", "SMILES,Inh Power\nCCO,0.5\nCCN,-Inf\n", DefaultLabelColumn, "line 3"},
		{"label beyond float32", "SMILES,Inh Power\nCCO,0.5\nCCN,2\nCCC,1e39\n", DefaultLabelColumn, `line 4: label "1e39"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRows(strings.NewReader(tt.in), "", tt.labelCol)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetReadFailed))
			assert.Contains(t, errors.Reason(err), tt.detail)
		})
	}
}
