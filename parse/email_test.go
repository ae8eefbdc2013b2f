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

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwauters/casegraph/core"
)

const sampleMbox = `From mathieuwauters@gmail.com Mon Jan 12 10:00:00 2026
From: Mathieu Wauters <mathieuwauters@gmail.com>
To: rosanna.alvero@example.com
Subject: Request for continuance of the March hearing
Date: Mon, 12 Jan 2026 10:00:00 -0800
Message-ID: <abc123@mail.example.com>

I am requesting a continuance of two weeks due to a scheduling conflict.

Best,
Mathieu

From clerk@court.example.com Tue Jan 13 09:30:00 2026
From: courtclerk@court.example.com
Subject: Notice of hearing date
Date: Tue, 13 Jan 2026 09:30:00 -0800
Message-ID: <def456@mail.example.com>

The hearing has been set for March 3.
`

func TestParseMbox(t *testing.T) {
	parser := NewEmailParser()
	entries := parser.Parse(sampleMbox, "archive.mbox")
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "email", first.Event.Type)
	assert.Equal(t, core.ActorRespondent, first.Event.Actor)
	assert.Equal(t, "Mon, 12 Jan 2026 10:00:00 -0800", first.Event.Date)
	assert.Equal(t, "Email regarding continuance: Request for continuance of the March hearing", first.Event.Description)
	assert.Equal(t, "Request for continuance of the March hearing", first.Title)
	assert.Contains(t, first.Body, "scheduling conflict")

	require.NotNil(t, first.Sender)
	assert.Equal(t, "Mathieu Wauters", first.Sender.Name)
	assert.Equal(t, "mathieuwauters@gmail.com", first.Sender.Email)

	second := entries[1]
	assert.Equal(t, core.ActorCourt, second.Event.Actor)
	assert.Equal(t, "Email regarding hearing: Notice of hearing date", second.Event.Description)
}

func TestParseMboxStableIDs(t *testing.T) {
	parser := NewEmailParser()

	a := parser.Parse(sampleMbox, "archive.mbox")
	b := parser.Parse(sampleMbox, "archive.mbox")
	require.Len(t, a, 2)
	require.Len(t, b, 2)

	assert.Equal(t, a[0].Event.ExternalID, b[0].Event.ExternalID)
	assert.Equal(t, a[1].Event.ExternalID, b[1].Event.ExternalID)
	assert.NotEqual(t, a[0].Event.ExternalID, a[1].Event.ExternalID)
}

func TestParseMboxIgnoresPreamble(t *testing.T) {
	data := "garbage before the first message\n" + sampleMbox
	entries := NewEmailParser().Parse(data, "archive.mbox")
	assert.Len(t, entries, 2)
}

func TestClassifyActor(t *testing.T) {
	parser := NewEmailParser()

	cases := []struct {
		name string
		text string
		want core.Actor
	}{
		{"respondent address", "From mathieuwauters@gmail.com about anything", core.ActorRespondent},
		{"petitioner address", "rosanna.alvero@example.com sent a message", core.ActorPetitioner},
		{"attorney keyword", "Law Office of Smith regarding your case", core.ActorAttorney},
		{"court keyword", "Notice from the Superior Court of California", core.ActorCourt},
		{"party beats attorney keyword", "mathieuwauters@gmail.com cc attorney smith", core.ActorRespondent},
		{"no match", "hello from a neighbor about the fence", core.ActorOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parser.classifyActor(tc.text))
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	entries := NewEmailParser().ParseFile("does/not/exist.mbox")
	assert.Empty(t, entries)
}

func TestSenderPerson(t *testing.T) {
	p := senderPerson(`"Jane Doe" <Jane.Doe@Example.COM>`)
	require.NotNil(t, p)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, "jane.doe@example.com", p.Email)

	bare := senderPerson("someone@example.com")
	require.NotNil(t, bare)
	assert.Equal(t, "someone@example.com", bare.Name)
	assert.Equal(t, "someone@example.com", bare.Email)

	assert.Nil(t, senderPerson("  "))

	// Same address, same person id, regardless of display name.
	assert.Equal(t, p.ExternalID, senderPerson("<jane.doe@example.com>").ExternalID)
}
