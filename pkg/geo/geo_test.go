package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{
			name: "Same Point",
			p1:   Point{Lat: 10.7769, Lng: 106.7009},
			p2:   Point{Lat: 10.7769, Lng: 106.7009},
			want: 0,
		},
		{
			name: "London to Paris",
			p1:   Point{Lat: 51.5074, Lng: -0.1278},
			p2:   Point{Lat: 48.8566, Lng: 2.3522},
			want: 344, // Approx 344km
		},
		{
			name: "Equator 1 degree",
			p1:   Point{Lat: 0, Lng: 0},
			p2:   Point{Lat: 0, Lng: 1},
			want: 111.319,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.p1, tt.p2)
			// Allow 1% margin of error due to float precision/earth radius var
			margin := tt.want * 0.01
			if math.Abs(got-tt.want) > margin && tt.want != 0 {
				t.Errorf("DistanceKm() = %v, want %v (+/- %v)", got, tt.want, margin)
			}
		})
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	pairs := []struct {
		a, b Point
	}{
		{Point{Lat: 10.7769, Lng: 106.7009}, Point{Lat: 10.90, Lng: 107.00}},
		{Point{Lat: -33.8688, Lng: 151.2093}, Point{Lat: 40.7128, Lng: -74.0060}},
		{Point{Lat: 0, Lng: 179.9}, Point{Lat: 0, Lng: -179.9}},
	}

	for _, p := range pairs {
		ab := DistanceKm(p.a, p.b)
		ba := DistanceKm(p.b, p.a)
		if ab != ba {
			t.Errorf("DistanceKm not symmetric: %v vs %v for %+v", ab, ba, p)
		}
		if ab < 0 {
			t.Errorf("DistanceKm negative: %v", ab)
		}
	}
}

func TestBoundAroundKm(t *testing.T) {
	center := Point{Lat: 10.7769, Lng: 106.7009}
	bound := BoundAroundKm(center, 100)

	if !bound.Contains(center.Orb()) {
		t.Error("bound must contain its center")
	}

	// A point ~27km away must still be inside the 100km bound.
	near := Point{Lat: 10.90, Lng: 107.00}
	if !bound.Contains(near.Orb()) {
		t.Errorf("bound should contain nearby point %+v", near)
	}

	// A point on another continent must not be.
	far := Point{Lat: 48.8566, Lng: 2.3522}
	if bound.Contains(far.Orb()) {
		t.Errorf("bound should not contain far point %+v", far)
	}
}
