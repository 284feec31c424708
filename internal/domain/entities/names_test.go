package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerson_FullName(t *testing.T) {
	tests := []struct {
		name     string
		person   Person
		expected string
	}{
		{
			name:     "first name only",
			person:   Person{FirstName: "Ada"},
			expected: "Ada",
		},
		{
			name:     "first and last",
			person:   Person{FirstName: "Ada", LastName: "Lovelace"},
			expected: "Ada Lovelace",
		},
		{
			name:     "maiden name appended",
			person:   Person{FirstName: "Ada", LastName: "King", MaidenName: "Byron"},
			expected: "Ada King (née Byron)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.person.FullName())
		})
	}
}

func TestPerson_LifeSpan(t *testing.T) {
	tests := []struct {
		name     string
		person   Person
		expected string
	}{
		{
			name:     "living with birth",
			person:   Person{IsLiving: true, BirthDate: "1950-04-02"},
			expected: "b. 1950",
		},
		{
			name:     "living without birth",
			person:   Person{IsLiving: true},
			expected: "",
		},
		{
			name:     "deceased with both dates",
			person:   Person{BirthDate: "1950", DeathDate: "2010-01-05"},
			expected: "1950 - 2010",
		},
		{
			name:     "deceased with death only",
			person:   Person{DeathDate: "2010"},
			expected: "d. 2010",
		},
		{
			name:     "unparseable dates ignored",
			person:   Person{BirthDate: "sometime"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.person.LifeSpan())
		})
	}
}

func TestPerson_Age(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("before birthday", func(t *testing.T) {
		p := Person{BirthDate: "1950-07-01"}
		age, ok := p.Age(now)
		assert.True(t, ok)
		assert.Equal(t, 73, age)
	})

	t.Run("uses death date", func(t *testing.T) {
		p := Person{BirthDate: "1900-01-01", DeathDate: "1980-12-31"}
		age, ok := p.Age(now)
		assert.True(t, ok)
		assert.Equal(t, 80, age)
	})

	t.Run("unknown birth", func(t *testing.T) {
		p := Person{}
		_, ok := p.Age(now)
		assert.False(t, ok)
	})
}

func TestEdgeID_Stable(t *testing.T) {
	a := EdgeID("p1", EdgeSpouse, "p2")
	b := EdgeID("p1", EdgeSpouse, "p2")
	c := EdgeID("p2", EdgeSpouse, "p1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPerson_Clone(t *testing.T) {
	p := &Person{
		ID:                  "p1",
		ParentRelationships: []ParentRelationship{{PersonID: "p0", Type: ParentBiological}},
		Photos:              []Photo{{ID: "ph", TaggedPersonIDs: []string{"p1"}}},
	}

	c := p.Clone()
	c.ParentRelationships[0].Type = ParentStep
	c.Photos[0].TaggedPersonIDs[0] = "other"

	assert.Equal(t, ParentBiological, p.ParentRelationships[0].Type)
	assert.Equal(t, "p1", p.Photos[0].TaggedPersonIDs[0])
}
