package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOneCompilesToIR(t *testing.T) {
	r, err := RunOne(Input{Name: "a.qt", Source: `
		func add(x: i32, y: i32) -> i32 { return x + y; }
	`})
	require.NoError(t, err)
	require.NotNil(t, r.Unit)
	assert.NotEmpty(t, r.Unit.Functions)
}

func TestRunOneSurfacesParseError(t *testing.T) {
	_, err := RunOne(Input{Name: "bad.qt", Source: `func ( {`})
	assert.Error(t, err)
}

func TestRunFansOutIndependentUnits(t *testing.T) {
	inputs := []Input{
		{Name: "a.qt", Source: `func f() -> i32 { return 1; }`},
		{Name: "b.qt", Source: `func g() -> i32 { return 2; }`},
		{Name: "c.qt", Source: `func h() -> i32 { return 3; }`},
	}
	results, err := Run(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, inputs[i].Name, r.Name)
		assert.NotNil(t, r.Unit)
	}
}

func TestRunSurfacesFirstUnitError(t *testing.T) {
	inputs := []Input{
		{Name: "good.qt", Source: `func f() -> i32 { return 1; }`},
		{Name: "bad.qt", Source: `func ( {`},
	}
	_, err := Run(context.Background(), inputs)
	assert.Error(t, err)
}
