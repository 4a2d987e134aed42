package models

import (
	"math"
	"testing"
)

func TestPositionUpdatePrice(t *testing.T) {
	pos := &Position{Ticker: "AAPL", Shares: 10, AvgEntryPrice: 150}

	pos.UpdatePrice(165)

	if pos.CurrentPrice != 165 {
		t.Errorf("CurrentPrice = %v, want 165", pos.CurrentPrice)
	}
	if pos.CurrentValue != 1650 {
		t.Errorf("CurrentValue = %v, want 1650", pos.CurrentValue)
	}
}

func TestPositionReturn(t *testing.T) {
	tests := []struct {
		name     string
		position Position
		want     float64
	}{
		{
			name:     "gain",
			position: Position{Shares: 10, AvgEntryPrice: 100, CurrentPrice: 120},
			want:     0.20,
		},
		{
			name:     "loss",
			position: Position{Shares: 10, AvgEntryPrice: 100, CurrentPrice: 85},
			want:     -0.15,
		},
		{
			name:     "flat",
			position: Position{Shares: 10, AvgEntryPrice: 100, CurrentPrice: 100},
			want:     0,
		},
		{
			name:     "zero entry price",
			position: Position{Shares: 10, AvgEntryPrice: 0, CurrentPrice: 50},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.position.Return()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Return() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPositionUnrealizedPL(t *testing.T) {
	tests := []struct {
		name     string
		position Position
		want     float64
	}{
		{
			name:     "profit",
			position: Position{Shares: 10, AvgEntryPrice: 100, CurrentPrice: 145},
			want:     450,
		},
		{
			name:     "loss",
			position: Position{Shares: 5, AvgEntryPrice: 200, CurrentPrice: 180},
			want:     -100,
		},
		{
			name:     "fractional shares",
			position: Position{Shares: 2.5, AvgEntryPrice: 40, CurrentPrice: 44},
			want:     10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.position.UnrealizedPL()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("UnrealizedPL() = %v, want %v", got, tt.want)
			}
		})
	}
}
