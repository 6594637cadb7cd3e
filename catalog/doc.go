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


// Package catalog loads rental listings from external sources.
//
// Scraped records arrive in the booking-site shape (price strings such as
// "PKR 55,776", room types such as "Deluxe Double Room") and are normalized
// into core.Listing values. Sources are JSON files and the scraper's
// Postgres table.
package catalog
