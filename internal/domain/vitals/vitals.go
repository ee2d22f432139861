package vitals

import (
	"fmt"
	"math"
	"strconv"
)

// Band is the classification shared by the BMI and blood-pressure widgets.
// The string value doubles as the indicator state class.
type Band string

const (
	BandLow    Band = "low"
	BandNormal Band = "ok"
	BandHigh   Band = "high"
)

func (b Band) Label() string {
	switch b {
	case BandLow:
		return "Low"
	case BandNormal:
		return "Normal"
	case BandHigh:
		return "High"
	}
	return ""
}

type WeightUnit string

const (
	UnitPounds    WeightUnit = "lb"
	UnitKilograms WeightUnit = "kg"
)

const (
	metersPerInch = 0.0254
	kgPerPound    = 0.45359237
)

// BMIReading holds the raw intake inputs. Pointers model fields the user
// has not filled in yet (mid-typing); any nil input clears the result.
type BMIReading struct {
	HeightFeet   *int
	HeightInches *int
	Weight       *float64
	Unit         WeightUnit
}

type BMIResult struct {
	BMI  float64
	Band Band

	// Derived values written back for backend submission.
	HeightCm int
	WeightKg float64

	Indicator string
}

// ComputeBMI derives BMI and its classification from the reading. The
// second return is false when the inputs are incomplete or the height is
// non-positive, in which case the caller clears all derived fields.
func ComputeBMI(r BMIReading) (*BMIResult, bool) {
	if r.HeightFeet == nil || r.HeightInches == nil || r.Weight == nil {
		return nil, false
	}

	totalIn := *r.HeightFeet*12 + *r.HeightInches
	heightM := float64(totalIn) * metersPerInch
	if heightM <= 0 {
		return nil, false
	}

	weightKg := *r.Weight
	if r.Unit != UnitKilograms {
		weightKg = *r.Weight * kgPerPound
	}

	bmi := round1(weightKg / (heightM * heightM))
	band := ClassifyBMI(bmi)

	return &BMIResult{
		BMI:       bmi,
		Band:      band,
		HeightCm:  int(math.Round(heightM * 100)),
		WeightKg:  round1(weightKg),
		Indicator: fmt.Sprintf("BMI %s — %s", formatNumber(bmi), band.Label()),
	}, true
}

// PoundsFromKilograms converts for storage; the session always carries the
// weight in pounds.
func PoundsFromKilograms(kg float64) float64 {
	return round1(kg / kgPerPound)
}

func ClassifyBMI(bmi float64) Band {
	switch {
	case bmi < 18.5:
		return BandLow
	case bmi < 25.0:
		return BandNormal
	default:
		return BandHigh
	}
}

type BPResult struct {
	Systolic  int
	Diastolic int
	Band      Band
	Indicator string
}

// ComputeBP classifies a blood-pressure reading. Nil inputs clear the
// derived fields, mirroring ComputeBMI.
func ComputeBP(systolic, diastolic *int) (*BPResult, bool) {
	if systolic == nil || diastolic == nil {
		return nil, false
	}

	sys, dia := *systolic, *diastolic
	band := ClassifyBP(sys, dia)

	return &BPResult{
		Systolic:  sys,
		Diastolic: dia,
		Band:      band,
		Indicator: fmt.Sprintf("BP %d/%d mmHg — %s", sys, dia, band.Label()),
	}, true
}

// Low: sys < 90 OR dia < 60; Normal: sys <= 130 AND dia <= 85; High: otherwise
func ClassifyBP(systolic, diastolic int) Band {
	switch {
	case systolic < 90 || diastolic < 60:
		return BandLow
	case systolic <= 130 && diastolic <= 85:
		return BandNormal
	default:
		return BandHigh
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// formatNumber prints 22.9 as "22.9" and 23.0 as "23", matching how the
// indicator label historically displayed the value.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
