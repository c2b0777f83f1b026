package garden

import (
	"math/rand"
	"strings"
)

// Note is one of the eight pitches a node can carry
type Note int

const (
	MiddleC Note = iota // Default pitch, also the fallback for anything unparsable
	A
	B
	C
	D
	E
	F
	G
)

// NumNotes is the size of the note enumeration
const NumNotes = 8

var noteNames = [NumNotes]string{"MiddleC", "A", "B", "C", "D", "E", "F", "G"}

func (n Note) String() string {
	if !n.Valid() {
		return noteNames[MiddleC]
	}
	return noteNames[n]
}

// Valid reports whether n is inside the enumeration
func (n Note) Valid() bool {
	return n >= MiddleC && n < NumNotes
}

// ParseNote maps a note name ("A".."G", "MiddleC") to a Note, case-insensitive.
// Anything else yields MiddleC.
func ParseNote(s string) Note {
	for i, name := range noteNames {
		if strings.EqualFold(s, name) {
			return Note(i)
		}
	}
	return MiddleC
}

// AssignNote draws a letter uniformly from 'A'..'H'. 'H' has no pitch of its
// own and maps to MiddleC, as does any letter ParseNote does not know.
func AssignNote(rng *rand.Rand) Note {
	letter := rune('A' + rng.Intn(NumNotes))
	if letter == 'H' {
		return MiddleC
	}
	return ParseNote(string(letter))
}
