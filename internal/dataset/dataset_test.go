package dataset

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRead(t *testing.T, name, body string) *Table {
	t.Helper()
	tbl, err := ReadCSV(name, strings.NewReader(body))
	require.NoError(t, err)
	return tbl
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		columns []string
		rows    int
	}{
		{"basic", "store_nbr,sales\n1,100\n2,50\n", []string{"store_nbr", "sales"}, 2},
		{"bom stripped", "\ufeffstore_nbr,sales\n1,100\n", []string{"store_nbr", "sales"}, 1},
		{"header only", "store_nbr,sales\n", []string{"store_nbr", "sales"}, 0},
		{"blank lines skipped", "a,b\n\n1,2\n\n", []string{"a", "b"}, 1},
		{"duplicate names", "a,a,a\n1,2,3\n", []string{"a", "a.1", "a.2"}, 1},
		{"unnamed columns", ",a,\n1,2,3\n", []string{"Unnamed: 0", "a", "Unnamed: 2"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := mustRead(t, "part.csv", tt.body)
			if diff := cmp.Diff(tt.columns, tbl.Columns()); diff != "" {
				t.Fatalf("columns mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.rows, tbl.NumRows())
		})
	}
}

func TestReadCSVShortRowsArePadded(t *testing.T) {
	tbl := mustRead(t, "part.csv", "a,b,c\n1\n")

	c, err := tbl.Cell(0, "c")
	require.NoError(t, err)
	assert.Equal(t, "", c)
	assert.True(t, IsMissing(c))
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		line int
	}{
		{"empty file", "", 0},
		{"only newlines", "\n\n", 0},
		{"too many fields", "a,b\n1,2\n1,2,3\n", 3},
		{"bare quote", "a,b\n1,x\"y\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV("bad.csv", strings.NewReader(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "bad.csv", pe.Part)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestConcat(t *testing.T) {
	a := mustRead(t, "a.csv", "store_nbr,family,sales\n1,A,100\n")
	b := mustRead(t, "b.csv", "store_nbr,sales,state\n2,50,Y\n3,10,Z\n")

	merged := Concat(a, b)

	assert.Equal(t, a.NumRows()+b.NumRows(), merged.NumRows())
	if diff := cmp.Diff([]string{"store_nbr", "family", "sales", "state"}, merged.Columns()); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}

	family, err := merged.Strings("family")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "", ""}, family)

	state, err := merged.Strings("state")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "Y", "Z"}, state)

	sales, err := merged.Floats("sales")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 50, 10}, sales)
}

func TestTypedViews(t *testing.T) {
	tbl := mustRead(t, "p.csv", "store_nbr,sales,day_of_week\n1,10.5,Monday\n2.0,NA,\n,3,Sunday\n")

	stores, err := tbl.Ints("store_nbr")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 0}, stores.Values)
	assert.Equal(t, []bool{true, true, false}, stores.Valid)

	sales, err := tbl.Floats("sales")
	require.NoError(t, err)
	assert.Equal(t, 10.5, sales[0])
	assert.True(t, math.IsNaN(sales[1]))
	assert.Equal(t, 3.0, sales[2])

	days, err := tbl.Strings("day_of_week")
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday", "", "Sunday"}, days)

	again, err := tbl.Floats("sales")
	require.NoError(t, err)
	assert.Same(t, &sales[0], &again[0], "typed view should be memoized")
}

func TestTypedViewErrors(t *testing.T) {
	tbl := mustRead(t, "p.csv", "store_nbr,sales\n1,10\n1.5,abc\n")

	_, err := tbl.Floats("sales")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "p.csv", pe.Part)
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, "sales", pe.Column)

	_, err = tbl.Ints("store_nbr")
	assert.True(t, errors.Is(err, ErrParse))

	_, err = tbl.Floats("cluster")
	assert.True(t, errors.Is(err, ErrMissingColumn))
	var mc *MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "cluster", mc.Column)
}

func TestSubset(t *testing.T) {
	tbl := mustRead(t, "p.csv", "store_nbr,sales\n1,10\n2,20\n3,30\n")

	sub := tbl.Subset([]int{2, 0})
	sales, err := sub.Floats("sales")
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 10}, sales)
	assert.Equal(t, 3, tbl.NumRows())
}
