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
	"fmt"
	"math"
)

// ValidateListing validates a Listing according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Price and Rooms must be finite and not negative
//
// NOT validated:
//   - Images (may be empty)
//   - Text fields (an empty text embeds to the zero vector)
func ValidateListing(listing *Listing) error {
	if listing == nil {
		return fmt.Errorf("%w: listing is nil", ErrInvalidListing)
	}

	if listing.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidListing, ErrEmptyID)
	}

	if err := ValidateNumbers(listing); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListing, err)
	}

	return nil
}

// ValidateNumbers checks the numeric attributes used by structured scoring.
func ValidateNumbers(listing *Listing) error {
	if !isFinite(listing.Price) || !isFinite(listing.Rooms) {
		return ErrNotANumber
	}
	if listing.Price < 0 {
		return ErrNegativePrice
	}
	if listing.Rooms < 0 {
		return ErrNegativeRooms
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
