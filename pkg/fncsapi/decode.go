package fncsapi

import (
	"encoding/json"
	"fmt"
	"io"
)

// decodePriceHistory reads the unit-id -> series mapping while
// preserving the key order of the document. encoding/json maps lose
// ordering, and the rendering contract lists units in the order the
// service returned them, so the object is walked token by token.
func decodePriceHistory(r io.Reader) ([]UnitPrices, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var units []UnitPrices
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		unitID, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected unit id key, got %v", keyTok)
		}

		var series struct {
			UnitName string    `json:"unit_name"`
			Prices   []float64 `json:"prices"`
		}
		if err := dec.Decode(&series); err != nil {
			return nil, fmt.Errorf("unit %q: %w", unitID, err)
		}

		units = append(units, UnitPrices{
			UnitID:   unitID,
			UnitName: series.UnitName,
			Prices:   series.Prices,
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return units, nil
}
