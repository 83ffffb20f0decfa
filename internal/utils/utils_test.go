package utils

import (
	"bytes"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func approxEqual(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestStatistics(t *testing.T) {
	s := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if SumSlice(s) != 40 || SumSlice([]int{1, 2, 3}) != 6 {
		t.Fatalf("SumSlice")
	}
	mean, variance := MeanAndVariance(s, false)
	if mean != 5 || variance != 4 {
		t.Fatalf("mean %g, variance %g", mean, variance)
	}
	if !approxEqual(Variance(s, true), 32./7, 1e-12) {
		t.Fatalf("unbiased variance %g", Variance(s, true))
	}
	if want := 1.96 * math.Sqrt(32./7/8); !approxEqual(StdError(s, 1.96), want, 1e-12) {
		t.Fatalf("StdError %g, want %g", StdError(s, 1.96), want)
	}
	if Average([]float64{}) != 0 || StdError([]float64{1}, 1.96) != 0 {
		t.Fatalf("degenerate samples")
	}
}

func TestSampling(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	sum := 0.
	for range 100000 {
		r := R(rng)
		if r < 0 {
			t.Fatalf("negative optical depth %g", r)
		}
		sum += r
		a, b := UniformOnDisk(3, rng)
		if a*a+b*b > 9+1e-9 {
			t.Fatalf("(%g, %g) outside the disk", a, b)
		}
	}
	if mean := sum / 100000; !approxEqual(mean, 1, 0.02) {
		t.Fatalf("mean optical depth %g", mean)
	}
}

func TestClampIntersect(t *testing.T) {
	if Clamp(1.5, -1, 1) != 1 || Clamp(-3, -1, 1) != -1 || Clamp(0.25, -1, 1) != 0.25 {
		t.Fatalf("Clamp")
	}
	if got := Intersect([]string{"a", "b"}, []string{"c", "b"}); got == nil || *got != "b" {
		t.Fatalf("Intersect = %v", got)
	}
	if Intersect([]string{"a"}, []string{"c"}) != nil {
		t.Fatalf("disjoint sets intersect")
	}
}

func TestWriteAsCSVNaturalOrder(t *testing.T) {
	var buf bytes.Buffer
	data := CSV{{"10", "x"}, {"2", "y"}, {"1", "z"}, {"2", "a"}}
	if err := WriteAsCSV(&buf, []string{"id", "v"}, data); err != nil {
		t.Fatal(err)
	}
	want := "id,v\n1,z\n2,a\n2,y\n10,x\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestOutputPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	if _, err := OutputPath(false, dir, "a.csv"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("directory created without make_dir")
	}
	f, err := OpenFile(true, dir, "a.csv")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if !strings.HasSuffix(f.Name(), filepath.Join("nested", "a.csv")) {
		t.Fatalf("file = %s", f.Name())
	}
	if p, _ := OutputPath(false, "", "b.csv"); p != "b.csv" {
		t.Fatalf("empty dir path = %s", p)
	}
}
