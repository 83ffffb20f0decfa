package config

import (
	"math"

	"github.com/wildstyl3r/comptsplit/internal/utils"
)

// internal units are mm, MeV and rad
var unitToSI = map[string]float64{
	"mm":  1,
	"cm":  10,
	"m":   1e3,
	"eV":  1e-6,
	"keV": 1e-3,
	"MeV": 1,
	"rad": 1,
	"deg": math.Pi / 180.,
}

type UnitClass int

const (
	Length UnitClass = iota
	Energy
	Angle
)

var unitsInClass = map[UnitClass][]string{
	Length: {"mm", "cm", "m"},
	Energy: {"eV", "keV", "MeV"},
	Angle:  {"rad", "deg"},
}

var classesOfUnits = map[string]UnitClass{
	"mm":  Length,
	"cm":  Length,
	"m":   Length,
	"eV":  Energy,
	"keV": Energy,
	"MeV": Energy,
	"rad": Angle,
	"deg": Angle,
}

var defaultUnits = []string{"mm", "MeV", "rad"}

type UnitElement = struct {
	Class UnitClass
	Power int
}

// checkUnits completes units with a default for every class not mentioned and
// reports units that repeat a class or are not known at all.
func checkUnits(units []string) (extended, conflicts, unknown []string) {
	classes := map[UnitClass]struct{}{}
	for _, unit := range units {
		class, known := classesOfUnits[unit]
		if !known {
			unknown = append(unknown, unit)
			continue
		}
		if _, some := classes[class]; some {
			conflicts = append(conflicts, unit)
		} else {
			classes[class] = struct{}{}
			extended = append(extended, unit)
		}
	}
	for _, unit := range defaultUnits {
		if _, some := classes[classesOfUnits[unit]]; !some {
			extended = append(extended, unit)
		}
	}
	return
}

// SI converts v between the given units and internal units; direct converts
// into internal units.
func SI(v float64, classes []UnitElement, units []string, direct bool) float64 {
	for i := range classes {
		uc := classes[i]
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		factor := math.Pow(unitToSI[*unit], float64(uc.Power))
		if direct {
			v *= factor
		} else {
			v /= factor
		}
	}
	return v
}
