// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across wikichat.
//
// It contains crash-safe file writing (AtomicWriteFile), UTF-8 safe
// string truncation, and display-width padding for terminal tables.
package util
