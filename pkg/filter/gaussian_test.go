package filter

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"isovolume/internal/models"
	"isovolume/internal/phantom"
)

// TestConstantVolume ensures that smoothing keeps a flat field flat
func TestConstantVolume(t *testing.T) {
	vol := models.NewVolume(6, 5, 4)
	for i := range vol.Data {
		vol.Data[i] = 750
	}

	out, err := NewGaussian(1.5, 3).Apply(vol)
	if err != nil {
		t.Fatalf("Failed to smooth: %v", err)
	}
	for i, v := range out.Data {
		if math.Abs(v-750) > 1e-6 {
			t.Fatalf("Expected 750 at %d, got %f", i, v)
		}
	}
}

// TestImpulse verifies that a single bright voxel spreads symmetrically and
// keeps its total mass
func TestImpulse(t *testing.T) {
	vol := models.NewVolume(21, 21, 21)
	center := vol.Index(10, 10, 10)
	vol.Data[center] = 1

	out, err := NewGaussian(1, 2).Apply(vol)
	if err != nil {
		t.Fatalf("Failed to smooth: %v", err)
	}

	if vol.Data[center] != 1 {
		t.Error("Expected the input to be left untouched")
	}
	peak := out.Data[center]
	if peak >= 1 || peak <= 0 {
		t.Errorf("Expected the peak to drop below 1, got %f", peak)
	}

	sum := 0.0
	for _, v := range out.Data {
		sum += v
	}
	if math.Abs(sum-1) > 1e-3 {
		t.Errorf("Expected total mass 1, got %f", sum)
	}

	left := out.At(9, 10, 10)
	right := out.At(11, 10, 10)
	up := out.At(10, 11, 10)
	if math.Abs(left-right) > 1e-9 || math.Abs(left-up) > 1e-9 {
		t.Errorf("Expected symmetric neighbours, got %f %f %f", left, right, up)
	}
	if left >= peak {
		t.Errorf("Expected neighbours below the peak, got %f >= %f", left, peak)
	}

	// A 1D Gaussian with unit deviation has peak 1/sqrt(2*pi)
	want := math.Pow(1/math.Sqrt(2*math.Pi), 3)
	if math.Abs(peak-want) > 0.01 {
		t.Errorf("Expected peak near %f, got %f", want, peak)
	}
}

// TestSingleAxis verifies that zero deviations leave an axis alone
func TestSingleAxis(t *testing.T) {
	vol := models.NewVolume(8, 8, 24)
	vol.VoxelSize = mgl64.Vec3{0.5, 0.5, 2}
	for z := 8; z < 16; z++ {
		for y := 2; y < 6; y++ {
			for x := 3; x < 5; x++ {
				vol.Data[vol.Index(x, y, z)] = float64(100 * (x + y + z))
			}
		}
	}
	g := &Gaussian{Sigma: mgl64.Vec3{0, 0, 2}, Workers: 4}

	out, err := g.Apply(vol)
	if err != nil {
		t.Fatalf("Failed to smooth: %v", err)
	}

	// Every z column keeps its sum and empty columns stay empty
	for y := 0; y < vol.Height; y++ {
		for x := 0; x < vol.Width; x++ {
			before, after := 0.0, 0.0
			for z := 0; z < vol.Depth; z++ {
				before += vol.At(x, y, z)
				after += out.At(x, y, z)
			}
			if math.Abs(before-after) > 1e-6*math.Max(1, before) {
				t.Fatalf("Expected column (%d,%d) sum %f, got %f", x, y, before, after)
			}
			if before == 0 && math.Abs(out.At(x, y, 12)) > 1e-9 {
				t.Errorf("Expected column (%d,%d) to stay empty, got %f", x, y, out.At(x, y, 12))
			}
		}
	}

	head := phantom.Head(12)
	same, err := (&Gaussian{Workers: 1}).Apply(head)
	if err != nil {
		t.Fatalf("Failed to apply identity filter: %v", err)
	}
	for i := range head.Data {
		if same.Data[i] != head.Data[i] {
			t.Fatalf("Expected identical sample at %d", i)
		}
	}
	if same.VoxelSize != head.VoxelSize {
		t.Errorf("Expected spacing %v, got %v", head.VoxelSize, same.VoxelSize)
	}
}

// TestInvalidInput ensures that bad volumes and deviations are rejected
func TestInvalidInput(t *testing.T) {
	vol := models.NewVolume(4, 4, 4)
	if _, err := NewGaussian(-1, 1).Apply(vol); err == nil {
		t.Error("Expected an error for a negative deviation")
	}
	vol.Data = vol.Data[:3]
	if _, err := NewGaussian(1, 1).Apply(vol); err == nil {
		t.Error("Expected an error for a truncated volume")
	}
}

// TestReflect verifies the mirrored index mapping
func TestReflect(t *testing.T) {
	tests := []struct{ i, n, want int }{
		{0, 5, 0},
		{4, 5, 4},
		{-1, 5, 0},
		{-2, 5, 1},
		{5, 5, 4},
		{6, 5, 3},
		{-7, 3, 0},
		{3, 1, 0},
	}
	for _, tc := range tests {
		if got := reflect(tc.i, tc.n); got != tc.want {
			t.Errorf("Expected reflect(%d, %d) = %d, got %d", tc.i, tc.n, tc.want, got)
		}
	}
}

func BenchmarkGaussian(b *testing.B) {
	vol := phantom.Head(48)
	g := NewGaussian(1.5, 4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.Apply(vol); err != nil {
			b.Fatal(err)
		}
	}
}
