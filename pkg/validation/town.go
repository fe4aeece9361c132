// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// agent prompts, stored records, or broadcast payloads. Using these
// validators keeps prompt injection and control-character smuggling out of
// the reasoning pipeline.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// townNamePattern matches plausible settlement names.
// Allows: letters, digits, spaces, apostrophes, periods, hyphens
// Max length: 64 characters
var townNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 .'\-]{0,63}$`)

// ValidateTownName validates a town name before it reaches an agent prompt
// or a stored notification.
//
// Valid names:
//   - 1-64 characters
//   - Letters and digits
//   - Spaces, periods, apostrophes, and hyphens between characters
//
// Returns an error if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateTownName(town.Name); err != nil {
//	    return fmt.Errorf("invalid town: %w", err)
//	}
//	// Safe to interpolate into a prompt
func ValidateTownName(name string) error {
	if name == "" {
		return fmt.Errorf("town name cannot be empty")
	}

	if !townNamePattern.MatchString(name) {
		return fmt.Errorf("invalid town name: %q (must be 1-64 chars of letters, digits, spaces, periods, apostrophes, or hyphens)", name)
	}

	return nil
}

// ValidateTownNames validates multiple town names.
// Returns an error listing all invalid names if any fail validation.
func ValidateTownNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateTownName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid town names: %v", invalid)
	}
	return nil
}

// SanitizeTownName normalizes and validates a town name.
// Returns the trimmed name if valid, or an error if invalid.
func SanitizeTownName(name string) (string, error) {
	normalized := strings.TrimSpace(name)
	if err := ValidateTownName(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
