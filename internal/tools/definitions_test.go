// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDefinitions_Names ensures the wire names the model sees stay
// fixed; prompts and transcripts depend on them.
func TestDefinitions_Names(t *testing.T) {
	require.Equal(t, "fetch_wikipedia_content", WikipediaDefinition().Function.Name)
	require.Equal(t, "fetch_real_authoritative_text", AuthoritativeTextDefinition().Function.Name)
	require.Equal(t, "subtract_dates_return_years", DateSubtractDefinition().Function.Name)
}

// TestDefinitions_WikipediaSchema checks the search tool's parameter
// schema shape.
func TestDefinitions_WikipediaSchema(t *testing.T) {
	def := WikipediaDefinition()
	require.Equal(t, "function", def.Type)
	require.True(t, def.Function.Strict)

	params := def.Function.Parameters
	require.Equal(t, "object", params["type"])

	props, ok := params["properties"].(map[string]any)
	require.True(t, ok, "properties should be an object")
	require.Contains(t, props, "search_query")

	required, ok := params["required"].([]string)
	require.True(t, ok, "required should be a string slice")
	require.Equal(t, []string{"search_query"}, required)
}

// TestDefinitions_DateSchema checks the date tool accepts the two
// date objects plus the free-form reason.
func TestDefinitions_DateSchema(t *testing.T) {
	def := DateSubtractDefinition()
	props, ok := def.Function.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "later_date")
	require.Contains(t, props, "earlier_date")
	require.Contains(t, props, "reason")

	later, ok := props["later_date"].(map[string]any)
	require.True(t, ok)
	dateProps, ok := later["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"label", "origin", "year", "month", "day"} {
		require.Contains(t, dateProps, key)
	}
	require.Equal(t, false, later["additionalProperties"])
}

// TestDefinitions_MarshalRoundTrip ensures the definitions serialize
// to valid JSON the way a request body carries them.
func TestDefinitions_MarshalRoundTrip(t *testing.T) {
	defs := []Definition{WikipediaDefinition(), AuthoritativeTextDefinition(), DateSubtractDefinition()}

	data, err := json.Marshal(defs)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)
	for _, d := range decoded {
		require.Equal(t, "function", d["type"])
	}
}
