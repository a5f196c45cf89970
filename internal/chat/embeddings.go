// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// EMBEDDINGS PROBE
// =============================================================================

// EmbeddingRequest is the body of an embeddings request.
type EmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// EmbeddingResponse is the subset of the embeddings response the probe
// validates.
type EmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// ProbeReport is the outcome of an embeddings reachability probe.
// Warnings note response oddities that do not make the endpoint
// unusable.
type ProbeReport struct {
	Model      string
	Dimensions int
	Warnings   []string
}

// ProbeEmbeddings sends a tiny embeddings request and validates the
// response shape. A healthy endpoint serves as a cheap liveness check
// for the whole server before a chat session starts.
func (c *Client) ProbeEmbeddings(ctx context.Context, model, input string) (*ProbeReport, error) {
	if model == "" {
		model = c.config.Model
	}
	if input == "" {
		input = "hello world"
	}

	body, err := json.Marshal(EmbeddingRequest{Model: model, Input: input})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrTimeout
		}
		return nil, ErrNotRunning
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var er EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return ValidateEmbeddingResponse(&er)
}

// ValidateEmbeddingResponse checks the structural invariants of an
// embeddings response. Hard failures mean the endpoint cannot be
// trusted; oddities that still leave a usable vector become warnings.
func ValidateEmbeddingResponse(er *EmbeddingResponse) (*ProbeReport, error) {
	if er.Object != "list" {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: fmt.Sprintf("embeddings response object is %q, want \"list\"", er.Object),
		}
	}
	if len(er.Data) == 0 {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "embeddings response data is empty"}
	}

	first := er.Data[0]
	if first.Object != "embedding" {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: fmt.Sprintf("embeddings data[0] object is %q, want \"embedding\"", first.Object),
		}
	}
	if len(first.Embedding) == 0 {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "embeddings data[0] has an empty vector"}
	}

	report := &ProbeReport{
		Model:      er.Model,
		Dimensions: len(first.Embedding),
	}
	if first.Index != 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("data[0] reports index %d instead of 0", first.Index))
	}
	if len(er.Data) > 1 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("response carries %d data elements for a single input", len(er.Data)))
	}
	return report, nil
}
