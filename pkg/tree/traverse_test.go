package tree

import (
	"encoding/json"
	"testing"

	"github.com/mlambe/fncs/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLactation(t *testing.T) (*Spec, *domain.GenericTreeState, *Traversal) {
	t.Helper()
	spec, err := Parse("lactation", []byte(lactationYAML))
	require.NoError(t, err)
	state := domain.NewGenericTreeState("lactation")
	trav := NewTraversal(spec, state)
	trav.Seed(map[string]any{"name": []string{"Farmer Bob", "Farmer Joe"}})
	return spec, state, trav
}

func TestTraversal_StartWalksDisplayChain(t *testing.T) {
	_, state, trav := newLactation(t)

	trav.Start()
	assert.True(t, trav.IsStarted())
	assert.False(t, trav.IsCompleted())
	assert.Equal(t, "farmers", state.Current)

	want := "Hello.\n" +
		"Hi. There are multiple farmers with this phone number. Who are you?\n" +
		"1. Farmer Bob\n" +
		"2. Farmer Joe"
	assert.Equal(t, want, trav.Question())
}

func TestTraversal_QuestionIsIdempotent(t *testing.T) {
	_, _, trav := newLactation(t)
	trav.Start()

	first := trav.Question()
	assert.Equal(t, first, trav.Question())

	// A rejected answer must not change the rendering either.
	assert.False(t, trav.Answer("not a number"))
	assert.Equal(t, first, trav.Question())
}

func TestTraversal_OptionSelection(t *testing.T) {
	_, state, trav := newLactation(t)
	trav.Start()

	for _, bad := range []string{"0", "3", "-1", "x", ""} {
		assert.False(t, trav.Answer(bad), "input %q must be rejected", bad)
		assert.Equal(t, "farmers", state.Current)
	}

	require.True(t, trav.Answer("2"))
	assert.Equal(t, "Farmer Joe", state.Answers["farmers"])
	assert.Equal(t, "quantityMilked", state.Current)
	assert.Equal(t, "How much milk was collected?", trav.Question())
}

func TestTraversal_ValidatorsAndCompletion(t *testing.T) {
	_, state, trav := newLactation(t)
	trav.Start()
	require.True(t, trav.Answer("1"))

	// integer validator
	assert.False(t, trav.Answer("lots"))
	require.True(t, trav.Answer("7"))
	assert.Equal(t, 7, state.Answers["quantityMilked"])

	require.True(t, trav.Answer("5"))

	// static options with default values
	require.True(t, trav.Answer("3"))
	assert.Equal(t, "An earlier day", state.Answers["milkTimestamp"])
	assert.Equal(t, "Which day was it [dd/mm/yyyy]?", trav.Question())

	// date validator
	assert.False(t, trav.Answer("31/31/2011"))
	require.True(t, trav.Answer("3/6/2011"))
	assert.Equal(t, "03/06/2011", state.Answers["whichDay"])

	assert.True(t, trav.IsCompleted())
	assert.Equal(t, "", trav.Question())
	assert.Equal(t, "Thank you! Your milk collection was registered successfully.", trav.Finish())
}

func TestTraversal_OptionDefaultRecorded(t *testing.T) {
	_, state, trav := newLactation(t)
	trav.Start()
	require.True(t, trav.Answer("1"))
	require.True(t, trav.Answer("7"))
	require.True(t, trav.Answer("5"))

	require.True(t, trav.Answer("1"))
	assert.Equal(t, "today", state.Answers["milkTimestamp"])
	assert.True(t, trav.IsCompleted())
}

func TestTraversal_ResumesFromSerializedState(t *testing.T) {
	spec, state, trav := newLactation(t)
	trav.Start()
	require.True(t, trav.Answer("1"))
	before := trav.Question()

	data, err := json.Marshal(domain.NewGenericState(state))
	require.NoError(t, err)

	var decoded domain.ConversationState
	require.NoError(t, json.Unmarshal(data, &decoded))

	resumed := NewTraversal(spec, decoded.Generic)
	assert.Equal(t, before, resumed.Question())

	require.True(t, resumed.Answer("7"))
	assert.Equal(t, "How much milk did you sell?", resumed.Question())
}

func TestTraversal_TurnBudgetTerminatesCycles(t *testing.T) {
	doc := `
__start__:
    question: "Again?"
    options:
        - display: "Yes"
          next: __start__
        - display: "No"
          next: __finish__
__finish__:
    display: "Bye."
`
	spec, err := Parse("loop", []byte(doc))
	require.NoError(t, err)

	state := domain.NewGenericTreeState("loop")
	trav := NewTraversal(spec, state, WithMaxTurns(5))
	trav.Start()

	for i := 0; i < 4; i++ {
		require.True(t, trav.Answer("1"))
		require.False(t, trav.IsCompleted())
	}
	require.True(t, trav.Answer("1"))
	assert.True(t, trav.IsCompleted())
}

func TestTraversal_TriviallyTerminalTree(t *testing.T) {
	doc := `
__start__:
    display: "Service closed for the season."
    next: __finish__
__finish__:
    display: "Goodbye."
`
	spec, err := Parse("closed", []byte(doc))
	require.NoError(t, err)

	state := domain.NewGenericTreeState("closed")
	trav := NewTraversal(spec, state)
	trav.Start()

	assert.True(t, trav.IsCompleted())
	assert.Equal(t, "Service closed for the season.\nGoodbye.", trav.Finish())
}
