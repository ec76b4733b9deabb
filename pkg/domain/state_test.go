package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/mlambe/fncs/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair_JSONTupleShape(t *testing.T) {
	data, err := json.Marshal(domain.Pair{ID: "crop1", Name: "Peas"})
	require.NoError(t, err)
	assert.JSONEq(t, `["crop1","Peas"]`, string(data))

	var p domain.Pair
	require.NoError(t, json.Unmarshal([]byte(`["market1","Kitwe"]`), &p))
	assert.Equal(t, domain.Pair{ID: "market1", Name: "Kitwe"}, p)

	assert.Error(t, json.Unmarshal([]byte(`["only-one"]`), &p))
}

func TestFarmer_Serialize(t *testing.T) {
	farmer := domain.Farmer{
		UserID: "fakeid1",
		Name:   "Farmer Bob",
		Crops:  []domain.Pair{{ID: "cropid1", Name: "Peas"}},
		Markets: []domain.Pair{
			{ID: "marketid1", Name: "Small Town Market"},
		},
	}

	data, err := json.Marshal(farmer)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"user_id": "fakeid1",
		"farmer_name": "Farmer Bob",
		"crops": [["cropid1", "Peas"]],
		"markets": [["marketid1", "Small Town Market"]]
	}`, string(data))

	var decoded domain.Farmer
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, farmer, decoded)
}

func TestConversationState_RoundTripGeneric(t *testing.T) {
	state := domain.NewGenericTreeState("lactation")
	state.Current = "quantityMilked"
	state.Started = true
	state.Turns = 2
	state.Answers["farmers"] = "Farmer Bob"
	state.Echo = []string{"Hello."}

	data, err := json.Marshal(domain.NewGenericState(state))
	require.NoError(t, err)

	var decoded domain.ConversationState
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, domain.VariantGeneric, decoded.Variant)
	require.NotNil(t, decoded.Generic)
	assert.Nil(t, decoded.PriceLookup)
	assert.Equal(t, state.Current, decoded.Generic.Current)
	assert.Equal(t, state.Echo, decoded.Generic.Echo)
	assert.Equal(t, "Farmer Bob", decoded.Generic.Answers["farmers"])
	assert.False(t, decoded.Terminated())
}

func TestConversationState_RoundTripPriceLookup(t *testing.T) {
	crop := 1
	state := &domain.PriceLookupState{
		Stage: domain.StageSelectMarket,
		Farmer: domain.Farmer{
			UserID:  "+27885557777",
			Name:    "Farmer Bob",
			Crops:   []domain.Pair{{ID: "crop1", Name: "Peas"}, {ID: "crop2", Name: "Carrots"}},
			Markets: []domain.Pair{{ID: "market1", Name: "Kitwe"}},
		},
		SelectedCrop: &crop,
	}

	data, err := json.Marshal(domain.NewPriceLookupState(state))
	require.NoError(t, err)

	var decoded domain.ConversationState
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, domain.VariantPriceLookup, decoded.Variant)
	require.NotNil(t, decoded.PriceLookup)
	assert.Equal(t, domain.StageSelectMarket, decoded.PriceLookup.Stage)
	require.NotNil(t, decoded.PriceLookup.SelectedCrop)
	assert.Equal(t, 1, *decoded.PriceLookup.SelectedCrop)
	assert.Nil(t, decoded.PriceLookup.SelectedMarket)
	assert.Equal(t, "Farmer Bob", decoded.PriceLookup.Farmer.Name)
}

func TestConversationState_Terminated(t *testing.T) {
	done := domain.NewPriceLookupState(&domain.PriceLookupState{Stage: domain.StageDone})
	assert.True(t, done.Terminated())

	completed := domain.NewGenericTreeState("t")
	completed.Completed = true
	assert.True(t, domain.NewGenericState(completed).Terminated())
}

func TestConversationState_UnknownVariant(t *testing.T) {
	var decoded domain.ConversationState
	err := json.Unmarshal([]byte(`{"variant":"bogus"}`), &decoded)
	assert.ErrorContains(t, err, "unknown state variant")
}
