package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapWithUsed(used ...float64) SectionSnapshot {
	snap := EmptySnapshot()
	for _, u := range used {
		snap.Items = append(snap.Items, Item{Component: "c", MassInputKg: u, MassUsedKg: u})
	}
	return snap
}

func TestComputeProductBasisMass(t *testing.T) {
	tests := []struct {
		name  string
		basis Basis
		want  *float64
	}{
		{
			name:  "unset basis",
			basis: Basis{MassValue: "1", MassUnit: "kg"},
			want:  nil,
		},
		{
			name:  "mass basis",
			basis: Basis{Type: BasisMass, MassValue: "500", MassUnit: "g"},
			want:  ptrF(0.5),
		},
		{
			name: "area basis uses unit weight, not area",
			basis: Basis{
				Type: BasisArea, AreaValue: "10", AreaUnit: "m2",
				AreaUnitWeightValue: "2", AreaUnitWeightUnit: "kg",
			},
			want: ptrF(2),
		},
		{
			name: "count basis uses unit weight",
			basis: Basis{
				Type: BasisCount, Units: "12",
				CountUnitWeightValue: "1", CountUnitWeightUnit: "t",
			},
			want: ptrF(1000),
		},
		{
			name:  "unparseable mass",
			basis: Basis{Type: BasisMass, MassValue: "heavy", MassUnit: "kg"},
			want:  nil,
		},
		{
			name:  "unknown unit",
			basis: Basis{Type: BasisMass, MassValue: "3", MassUnit: "stone"},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeProductBasisMass(tt.basis)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
		})
	}
}

func TestEvaluate(t *testing.T) {
	mass100 := Basis{Type: BasisMass, MassValue: "100", MassUnit: "kg"}

	t.Run("within tolerance", func(t *testing.T) {
		res := Evaluate(snapWithUsed(60), snapWithUsed(38), mass100)
		assert.Equal(t, 60.0, res.UsedBOM)
		assert.Equal(t, 38.0, res.UsedPack)
		assert.Equal(t, 98.0, res.UsedTotal)
		require.NotNil(t, res.Pct)
		assert.InDelta(t, -2.0, *res.Pct, 1e-9)
		assert.InDelta(t, -2.0, *res.Diff, 1e-9)
		assert.Equal(t, QCOK, res.Status)
	})

	t.Run("outside tolerance", func(t *testing.T) {
		res := Evaluate(snapWithUsed(100, 10), EmptySnapshot(), mass100)
		require.NotNil(t, res.Pct)
		assert.InDelta(t, 10.0, *res.Pct, 1e-9)
		assert.Equal(t, QCWarn, res.Status)
	})

	t.Run("exactly at tolerance", func(t *testing.T) {
		res := Evaluate(snapWithUsed(105), EmptySnapshot(), mass100)
		assert.Equal(t, QCOK, res.Status)
	})

	t.Run("no basis mass is indeterminate", func(t *testing.T) {
		res := Evaluate(snapWithUsed(5), snapWithUsed(1), Basis{Type: BasisMass})
		assert.Equal(t, QCIndeterminate, res.Status)
		assert.Nil(t, res.ProductMass)
		assert.Nil(t, res.Pct)
		assert.Equal(t, 6.0, res.UsedTotal)
	})

	t.Run("zero basis mass is indeterminate", func(t *testing.T) {
		res := Evaluate(snapWithUsed(5), EmptySnapshot(), Basis{Type: BasisMass, MassValue: "0", MassUnit: "kg"})
		assert.Equal(t, QCIndeterminate, res.Status)
	})
}

func TestQCResultMessage(t *testing.T) {
	mass100 := Basis{Type: BasisMass, MassValue: "100", MassUnit: "kg"}

	ok := Evaluate(snapWithUsed(60), snapWithUsed(38), mass100).Message()
	assert.True(t, strings.HasPrefix(ok, "Used mass — BOM: 60.0000 kg, Packaging: 38.0000 kg, Total: 98.0000 kg. "))
	assert.Contains(t, ok, "Product mass: 100.0000 kg | Δ = -2.0000 kg (-2.00%).")
	assert.Contains(t, ok, "Within tolerance (±5%).")

	warn := Evaluate(snapWithUsed(110), EmptySnapshot(), mass100).Message()
	assert.Contains(t, warn, "Outside tolerance—adjust or explain.")

	none := Evaluate(EmptySnapshot(), EmptySnapshot(), Basis{}).Message()
	assert.Contains(t, none, "Enter product basis mass (or unit weight) to enable QC.")
}

func ptrF(v float64) *float64 { return &v }
