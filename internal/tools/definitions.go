// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the callable tool system for wikichat: tool
// definitions in the chat-completions wire shape, a registry with
// dispatch, and the Wikipedia and date-arithmetic executors.
package tools

import "encoding/json"

// =============================================================================
// TOOL DEFINITION WIRE TYPES
// =============================================================================

// Definition is a tool definition as sent in the `tools` field of a
// chat-completions request.
type Definition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes one callable function to the model.
// Parameters is a raw JSON-Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Strict      bool           `json:"strict,omitempty"`
}

// StripStrict returns a copy of defs with every `strict` marker
// removed. Some backends reject definitions carrying the field, so
// this runs behind a backend-quirk flag before a request is built.
// The input is never modified.
func StripStrict(defs []Definition) []Definition {
	out := make([]Definition, len(defs))
	copy(out, defs)
	for i := range out {
		out[i].Function.Strict = false
	}
	return out
}

// =============================================================================
// WIKIPEDIA TOOL DEFINITIONS
// =============================================================================

const wikipediaDescription = `Search Wikipedia and fetch the introduction of the most relevant article.

Always use this if the user is asking for something that is likely on wikipedia.

If the user has a typo in their search query, correct it before searching.

For biographies, prefer searching for that individual person's article (using their full name).

For events, prefer searching for the event name.

For other topics, prefer searching for the most common name of the topic in a way that would make sense for title of an encyclopedia article.

Don't combine multiple search queries in one call: instead of 'Nikola Tesla WW1', search for 'Nikola Tesla' and 'World War 1' separately as two tool calls.

Don't ask for 'first airing of X', instead ask just for 'X' since the API won't correctly handle the former and may return the wrong article. For example: 'first showing of The Matrix' should actually be requested with query 'The Matrix'.

If you get an error in a function call, try to fix the arguments and repeat the call. Match the arguments strictly: don't assume the tool can handle arbitrary input, missing or misformatted parameters, etc.

Don't make a call using data you do not have; ask for data you need in the first round of calls, then make the call you actually want to do in the next round. For example: if you try to compute difference between 'birth of Y' and 'start of Z', first make a request for an article about 'Y' and article about 'Z'; then once you receive the response to those requests, make a request for the difference between the dates; and only then send just a response without invoking a tool.`

const authoritativeDescription = `Search an authoritative book and fetch the introduction of the most relevant article Always use this if the user is asking for some fact, especially dates, rather than assume wikipedia is correct or your memory is correct. If the user has a typo in the search query, correct it before searching. For biographies, prefer searching for that individual person's article (using their full name).`

// searchQuerySchema builds the single-parameter schema shared by both
// Wikipedia-backed tools.
func searchQuerySchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"search_query": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required":             []string{"search_query"},
		"additionalProperties": false,
	}
}

// WikipediaDefinition is the fetch_wikipedia_content tool definition.
func WikipediaDefinition() Definition {
	return Definition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        "fetch_wikipedia_content",
			Description: wikipediaDescription,
			Parameters:  searchQuerySchema("Search query for finding the Wikipedia article"),
			Strict:      true,
		},
	}
}

// AuthoritativeTextDefinition is the fetch_real_authoritative_text
// tool definition. It shares the Wikipedia executor; only the framing
// differs, which nudges models that distrust "wikipedia" by name.
func AuthoritativeTextDefinition() Definition {
	return Definition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        "fetch_real_authoritative_text",
			Description: authoritativeDescription,
			Parameters:  searchQuerySchema("Search query for finding the authoritative text on the subject"),
			Strict:      true,
		},
	}
}

// =============================================================================
// DATE SUBTRACTION TOOL DEFINITION
// =============================================================================

const dateSubtractDescription = `Compute difference in years. Process input dates as timestamps, subtract timestamps, and return how many years passed, rounded down. Useful to compute age. If the dates are fetched from a different source, do not provide the inputs until you received them from a different function call.`

// dateObjectSchema is the schema for one of the two input dates.
func dateObjectSchema(description string) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": description,
		"properties": map[string]any{
			"label": map[string]any{
				"anyOf":       []any{map[string]any{"type": "string"}, map[string]any{"type": "null"}},
				"description": "What the date represents (null or string).",
			},
			"origin": map[string]any{
				"anyOf":       []any{map[string]any{"type": "string"}, map[string]any{"type": "null"}},
				"description": "Where the date came from (null or string).",
			},
			"year":  map[string]any{"type": "integer", "description": "Year (non-null int)."},
			"month": map[string]any{"type": "integer", "description": "Month (non-null int)."},
			"day":   map[string]any{"type": "integer", "description": "Day (non-null int)."},
		},
		"required":             []string{"label", "origin", "year", "month", "day"},
		"additionalProperties": false,
	}
}

// DateSubtractDefinition is the subtract_dates_return_years tool
// definition.
func DateSubtractDefinition() Definition {
	return Definition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        "subtract_dates_return_years",
			Description: dateSubtractDescription,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"later_date":   dateObjectSchema("Later (newer) of the two input dates (must be valid)."),
					"earlier_date": dateObjectSchema("Earlier (older) of the two input dates (must be valid)."),
					"reason": map[string]any{
						"type":        "string",
						"description": "Reason for date subtraction, e.g. 'calculate age' or 'compute difference between first showing of X and birth of Y.",
					},
				},
				"required":             []string{"later_date", "earlier_date", "reason"},
				"additionalProperties": false,
			},
			Strict: true,
		},
	}
}

// MarshalDefinitions renders definitions as the JSON array used in a
// request body. Mostly useful for logging and tests.
func MarshalDefinitions(defs []Definition) ([]byte, error) {
	return json.Marshal(defs)
}
