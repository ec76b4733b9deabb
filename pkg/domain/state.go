package domain

import (
	"encoding/json"
	"fmt"
)

// Variant discriminates the serialized conversation state.
type Variant string

const (
	// VariantGeneric marks a session driven by the generic decision
	// tree traversal engine.
	VariantGeneric Variant = "generic"
	// VariantPriceLookup marks a session driven by the hand-coded
	// crop price lookup state machine.
	VariantPriceLookup Variant = "price_lookup"
)

// Stage enumerates the steps of the price lookup state machine.
type Stage string

const (
	StageStart        Stage = "start"
	StageSelectCrop   Stage = "select_crop"
	StageSelectMarket Stage = "select_market"
	StageViewPrices   Stage = "view_prices"
	StageDone         Stage = "done"
)

// GenericTreeState is the persisted position of a decision tree
// traversal: the current node, the validated answers collected so far
// and the display text accumulated for the pending prompt.
type GenericTreeState struct {
	// Tree names the decision tree specification in use. The spec
	// itself is configuration owned by the dispatcher, not session
	// state.
	Tree string `json:"tree"`

	// Current is the node the traversal is waiting at.
	Current string `json:"current"`

	// Answers maps node id -> validated answer value. Seed data from
	// the pre-start fetch is merged in before the traversal starts.
	Answers map[string]any `json:"answers"`

	// Echo holds display-node text collected while walking to the
	// current question, so re-renders are stable across turns.
	Echo []string `json:"echo,omitempty"`

	Started   bool `json:"started"`
	Completed bool `json:"completed"`

	// Turns counts answered steps; the traversal engine uses it to
	// bound cyclic graphs.
	Turns int `json:"turns"`
}

// NewGenericTreeState returns an unstarted traversal state for the
// named tree.
func NewGenericTreeState(tree string) *GenericTreeState {
	return &GenericTreeState{
		Tree:    tree,
		Answers: make(map[string]any),
	}
}

// PriceLookupState is the persisted position of the crop price lookup
// state machine. Indices are nil until the corresponding selection step
// completes; once set they are always valid indices into the farmer's
// crop and market lists.
type PriceLookupState struct {
	Stage          Stage  `json:"state"`
	Farmer         Farmer `json:"farmer"`
	SelectedCrop   *int   `json:"selected_crop"`
	SelectedMarket *int   `json:"selected_market"`

	// Rendered caches the last prompt shown to the subscriber, so
	// invalid input re-renders it without consulting the remote
	// service again.
	Rendered string `json:"rendered,omitempty"`
}

// ConversationState is the tagged union persisted per subscriber
// address. Exactly one of Generic and PriceLookup is non-nil, matching
// Variant.
type ConversationState struct {
	Variant     Variant
	Generic     *GenericTreeState
	PriceLookup *PriceLookupState
}

// NewGenericState wraps a tree state in the union.
func NewGenericState(state *GenericTreeState) *ConversationState {
	return &ConversationState{Variant: VariantGeneric, Generic: state}
}

// NewPriceLookupState wraps a price lookup state in the union.
func NewPriceLookupState(state *PriceLookupState) *ConversationState {
	return &ConversationState{Variant: VariantPriceLookup, PriceLookup: state}
}

// Terminated reports whether the underlying state machine has reached a
// terminal state and the session should be deleted.
func (s *ConversationState) Terminated() bool {
	switch s.Variant {
	case VariantGeneric:
		return s.Generic != nil && s.Generic.Completed
	case VariantPriceLookup:
		return s.PriceLookup != nil && s.PriceLookup.Stage == StageDone
	}
	return false
}

type genericEnvelope struct {
	Variant Variant `json:"variant"`
	*GenericTreeState
}

type priceLookupEnvelope struct {
	Variant Variant `json:"variant"`
	*PriceLookupState
}

// MarshalJSON flattens the active variant into a single object with a
// "variant" discriminant field.
func (s ConversationState) MarshalJSON() ([]byte, error) {
	switch s.Variant {
	case VariantGeneric:
		if s.Generic == nil {
			return nil, fmt.Errorf("generic state variant with nil payload")
		}
		return json.Marshal(genericEnvelope{s.Variant, s.Generic})
	case VariantPriceLookup:
		if s.PriceLookup == nil {
			return nil, fmt.Errorf("price lookup state variant with nil payload")
		}
		return json.Marshal(priceLookupEnvelope{s.Variant, s.PriceLookup})
	}
	return nil, fmt.Errorf("unknown state variant %q", s.Variant)
}

// UnmarshalJSON inspects the discriminant and decodes the matching
// variant.
func (s *ConversationState) UnmarshalJSON(data []byte) error {
	var head struct {
		Variant Variant `json:"variant"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Variant {
	case VariantGeneric:
		var state GenericTreeState
		if err := json.Unmarshal(data, &state); err != nil {
			return err
		}
		*s = ConversationState{Variant: VariantGeneric, Generic: &state}
	case VariantPriceLookup:
		var state PriceLookupState
		if err := json.Unmarshal(data, &state); err != nil {
			return err
		}
		*s = ConversationState{Variant: VariantPriceLookup, PriceLookup: &state}
	default:
		return fmt.Errorf("unknown state variant %q", head.Variant)
	}
	return nil
}
