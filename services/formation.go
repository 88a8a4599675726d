package services

import (
	"regexp"

	"train-live-viewer/models"
)

var enginePattern = regexp.MustCompile(`^E[1-5]`)

// IsEngine reports whether an asset number belongs to a locomotive
func IsEngine(assetNumber string) bool {
	return enginePattern.MatchString(assetNumber)
}

// DedupeCars drops repeated asset numbers, keeping the first occurrence
func DedupeCars(cars []models.Car) []models.Car {
	seen := make(map[string]struct{}, len(cars))
	out := make([]models.Car, 0, len(cars))
	for _, c := range cars {
		if _, ok := seen[c.AssetNumber]; ok {
			continue
		}
		seen[c.AssetNumber] = struct{}{}
		out = append(out, c)
	}
	return out
}

// OrderFormation arranges cars for display: the first engine leads, the
// last engine trails and regular cars keep their order in between.
// Engines other than the first and last are left out of the display order.
func OrderFormation(cars []models.Car) []models.Car {
	var engines, regular []models.Car
	for _, c := range DedupeCars(cars) {
		c.IsEngine = IsEngine(c.AssetNumber)
		if c.IsEngine {
			engines = append(engines, c)
		} else {
			regular = append(regular, c)
		}
	}

	out := make([]models.Car, 0, len(regular)+2)
	switch {
	case len(engines) >= 2:
		out = append(out, engines[0])
		out = append(out, regular...)
		out = append(out, engines[len(engines)-1])
	case len(engines) == 1:
		out = append(out, engines[0])
		out = append(out, regular...)
	default:
		out = append(out, regular...)
	}
	return out
}

// NavigationOrder lists every distinct asset number in store order
func NavigationOrder(cars []models.Car) []string {
	deduped := DedupeCars(cars)
	out := make([]string, len(deduped))
	for i, c := range deduped {
		out[i] = c.AssetNumber
	}
	return out
}
