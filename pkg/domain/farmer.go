package domain

import (
	"encoding/json"
	"fmt"
)

// Pair is an (id, name) tuple. The remote profile service encodes crops
// and markets as two-element JSON arrays, e.g. ["crop1", "Peas"], so the
// pair marshals to exactly that shape.
type Pair struct {
	ID   string
	Name string
}

// MarshalJSON encodes the pair as a two-element array.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.ID, p.Name})
}

// UnmarshalJSON decodes a two-element array into the pair.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var tuple []string
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("expected [id, name] pair, got %d elements", len(tuple))
	}
	p.ID, p.Name = tuple[0], tuple[1]
	return nil
}

// Farmer is an immutable-once-fetched snapshot of a remote farmer
// profile, keyed by subscriber address. It is fetched once per session
// lifetime, never per turn.
type Farmer struct {
	UserID  string `json:"user_id"`
	Name    string `json:"farmer_name"`
	Crops   []Pair `json:"crops"`
	Markets []Pair `json:"markets"`
}

// CropNames returns the crop display names in declaration order.
func (f *Farmer) CropNames() []string {
	names := make([]string, len(f.Crops))
	for i, c := range f.Crops {
		names[i] = c.Name
	}
	return names
}

// MarketNames returns the market display names in declaration order.
func (f *Farmer) MarketNames() []string {
	names := make([]string, len(f.Markets))
	for i, m := range f.Markets {
		names[i] = m.Name
	}
	return names
}
