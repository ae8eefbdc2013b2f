// Copyright 2026 Mathieu Wauters
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


// Package parse turns raw case-record archives into normalized entries.
//
// Two source formats are supported:
//
//   - mbox-style email archives (EmailParser)
//   - register-of-actions exports, delimited or free text (RegisterParser)
//
// Both parsers share the same failure contract: a malformed unit inside a
// file is skipped with a warning, and a file that cannot be read at all is
// logged and treated as producing zero entries. No error escapes a parse
// call; the ingestion pipeline decides what partial output means.
package parse
