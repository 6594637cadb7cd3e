// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidListing indicates a Listing failed validation.
	ErrInvalidListing = errors.New("invalid listing")

	// ErrEmptyID indicates a listing without an identifier.
	ErrEmptyID = errors.New("listing id cannot be empty")

	// ErrNegativePrice indicates a price below zero.
	ErrNegativePrice = errors.New("price cannot be negative")

	// ErrNegativeRooms indicates a room count below zero.
	ErrNegativeRooms = errors.New("rooms cannot be negative")

	// ErrNotANumber indicates a NaN or infinite numeric field.
	ErrNotANumber = errors.New("numeric field is not a finite number")

	// ErrModelMismatch indicates embeddings from different models or dimensions were compared.
	ErrModelMismatch = errors.New("embeddings are from different vector spaces")
)

// ExtractionError reports that the sale listing could not be obtained.
// It is fatal for the request.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting listing from %q: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports invalid engine configuration.
// It is raised at construction and never corrected silently.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ScoringError reports that one rental could not be scored.
// The engine skips the rental and keeps going.
type ScoringError struct {
	RentalID  string
	Component string
	Err       error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring rental %q (%s): %v", e.RentalID, e.Component, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}
