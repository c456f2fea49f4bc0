package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureTypes(t *testing.T) {
	readings := []Reading{
		{MeasureType: "level"},
		{MeasureType: "flow"},
		{MeasureType: "level"},
		{MeasureType: "rainfall"},
	}
	assert.Equal(t, []string{"level", "flow", "rainfall"}, MeasureTypes(readings))
	assert.Equal(t, []string{}, MeasureTypes(nil))
}

func TestFilterByMeasureType(t *testing.T) {
	readings := []Reading{
		{MeasureType: "level", Value: 1},
		{MeasureType: "flow", Value: 2},
		{MeasureType: "level", Value: 3},
	}

	assert.Equal(t, readings, FilterByMeasureType(readings, ""))

	levels := FilterByMeasureType(readings, "level")
	require.Len(t, levels, 2)
	assert.Equal(t, 1.0, levels[0].Value)
	assert.Equal(t, 3.0, levels[1].Value)

	none := FilterByMeasureType(readings, "tide")
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Bounds
		wantErr bool
	}{
		{
			name: "leaflet order",
			in:   "-0.5,51.9,0.7,52.5",
			want: Bounds{MinLong: -0.5, MinLat: 51.9, MaxLong: 0.7, MaxLat: 52.5},
		},
		{
			name: "spaces",
			in:   " -1 , 50 , 1 , 51 ",
			want: Bounds{MinLong: -1, MinLat: 50, MaxLong: 1, MaxLat: 51},
		},
		{name: "too few", in: "1,2,3", wantErr: true},
		{name: "not numbers", in: "a,b,c,d", wantErr: true},
		{name: "inverted", in: "1,52,0,51", wantErr: true},
		{name: "out of range", in: "-200,0,0,1", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBounds(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapshot_StationsInBounds(t *testing.T) {
	snap := NewSnapshot()
	snap.Stations = []Station{
		{Label: "Cambridge", Lat: 52.2, Long: 0.12},
		{Label: "Edge", Lat: 52.5, Long: 0.7},
		{Label: "London", Lat: 51.5, Long: -0.12},
	}

	b := Bounds{MinLong: -0.5, MinLat: 51.9, MaxLong: 0.7, MaxLat: 52.5}
	inside := snap.StationsInBounds(b)
	require.Len(t, inside, 2)
	assert.Equal(t, "Cambridge", inside[0].Label)
	assert.Equal(t, "Edge", inside[1].Label)

	var nilSnap *Snapshot
	assert.Empty(t, nilSnap.StationsInBounds(b))
}
