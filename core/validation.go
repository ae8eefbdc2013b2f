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


package core

import "fmt"

// ValidateEvent validates an Event according to domain rules.
//
// Validation rules:
//   - ExternalID must not be empty (it is the only upsert key)
//   - Description must not be empty
//
// NOT validated:
//   - Date (kept as the source wrote it, the verifier audits plausibility)
//   - Actor (unknown actors normalize to ActorOther at parse time)
func ValidateEvent(event *Event) error {
	if event == nil {
		return fmt.Errorf("%w: event is nil", ErrInvalidEvent)
	}

	if event.ExternalID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, ErrMissingExternalID)
	}

	if event.Description == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, ErrEmptyContent)
	}

	return nil
}

// ValidateContinuance validates a Continuance according to domain rules.
func ValidateContinuance(cont *Continuance) error {
	if cont == nil {
		return fmt.Errorf("%w: continuance is nil", ErrInvalidContinuance)
	}

	if cont.ExternalID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidContinuance, ErrMissingExternalID)
	}

	return nil
}

// ValidateDocument validates a Document according to domain rules.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ExternalID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingExternalID)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ExternalID and DocumentID must not be empty
//   - Index must not be negative
//   - Content must not be empty
//
// NOT validated:
//   - Embedding (empty until the embedding client runs)
//   - Checksum (optional, populated by NewChunk)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ExternalID == "" || chunk.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrMissingExternalID)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeChunkIndex)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	return nil
}
