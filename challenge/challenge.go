// Package challenge issues the codes members paste into their Habbo motto.
package challenge

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the character set of the random part of a code.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	DefaultPrefix = "myt-"
	DefaultLength = 6
)

// Generator builds codes of the form Prefix + Length random characters.
// Collisions between concurrent sessions are not checked.
type Generator struct {
	Prefix string
	Length int
}

// Generate returns a fresh code.
func (g Generator) Generate() (string, error) {
	n := g.Length
	if n <= 0 {
		n = DefaultLength
	}
	id, err := gonanoid.Generate(Alphabet, n)
	if err != nil {
		return "", fmt.Errorf("generate challenge code: %w", err)
	}
	return g.Prefix + id, nil
}
