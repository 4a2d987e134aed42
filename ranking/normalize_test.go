package ranking

import (
	"errors"
	"math"
	"testing"
)

func floatsEqual(a, b []float64, tolerance float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tolerance {
			return false
		}
	}
	return true
}

func TestNormalizeMinMax(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   []float64
	}{
		{
			name:   "spread values map to full range",
			scores: []float64{1, 2, 3},
			want:   []float64{0, 50, 100},
		},
		{
			name:   "all equal values map to midpoint",
			scores: []float64{5, 5, 5},
			want:   []float64{50, 50, 50},
		},
		{
			name:   "single value maps to midpoint",
			scores: []float64{42},
			want:   []float64{50},
		},
		{
			name:   "negative values normalize the same way",
			scores: []float64{-10, 0, 10},
			want:   []float64{0, 50, 100},
		},
		{
			name:   "empty input yields empty output",
			scores: []float64{},
			want:   []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.scores, NormalizeMinMax)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !floatsEqual(got, tt.want, 1e-9) {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeZScore(t *testing.T) {
	t.Run("all equal values map to midpoint", func(t *testing.T) {
		got, err := Normalize([]float64{7, 7, 7}, NormalizeZScore)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !floatsEqual(got, []float64{50, 50, 50}, 1e-9) {
			t.Errorf("Normalize() = %v, want all 50", got)
		}
	})

	t.Run("symmetric values center on 50", func(t *testing.T) {
		got, err := Normalize([]float64{-1, 0, 1}, NormalizeZScore)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if math.Abs(got[1]-50) > 1e-9 {
			t.Errorf("middle value = %v, want 50", got[1])
		}
		if math.Abs((got[0]+got[2])/2-50) > 1e-9 {
			t.Errorf("outer values not symmetric around 50: %v", got)
		}
		if got[0] >= got[1] || got[1] >= got[2] {
			t.Errorf("ordering not preserved: %v", got)
		}
	})

	t.Run("extreme outliers clamp to bounds", func(t *testing.T) {
		got, err := Normalize([]float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 1000}, NormalizeZScore)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		for _, v := range got {
			if v < 0 || v > 100 {
				t.Errorf("value %v outside [0, 100]", v)
			}
		}
		if got[len(got)-1] != 100 {
			t.Errorf("outlier = %v, want clamped to 100", got[len(got)-1])
		}
	})
}

func TestNormalizeInvalidMethod(t *testing.T) {
	_, err := Normalize([]float64{1, 2}, NormalizeMethod("median"))
	if !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("Normalize() error = %v, want ErrInvalidMethod", err)
	}
}
