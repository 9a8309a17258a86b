package core

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

// DefaultCodeAttempts bounds collision retries when allocating a room code.
const DefaultCodeAttempts = 10

var ErrGenerationExhausted = errors.New("room code generation exhausted")

// RoomCodeGenerator draws fixed-length codes from domain.RoomCodeAlphabet.
type RoomCodeGenerator struct {
	source io.Reader
}

func NewRoomCodeGenerator() RoomCodeGenerator {
	return RoomCodeGenerator{source: rand.Reader}
}

// Generate returns a code for which excluding reports false.
// Every attempt is independent; nothing is remembered between calls.
func (g RoomCodeGenerator) Generate(excluding func(domain.RoomID) bool, maxAttempts int) (domain.RoomID, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	for i := 0; i < maxAttempts; i++ {
		code, err := g.draw()
		if err != nil {
			return "", fmt.Errorf("draw room code: %w", err)
		}
		if excluding == nil || !excluding(code) {
			return code, nil
		}
	}
	return "", ErrGenerationExhausted
}

func (g RoomCodeGenerator) draw() (domain.RoomID, error) {
	src := g.source
	if src == nil {
		src = rand.Reader
	}
	const n = len(domain.RoomCodeAlphabet)
	// largest multiple of n below 256; bytes above it are rejected to keep the draw uniform
	limit := byte(256 - 256%n)

	out := make([]byte, 0, domain.RoomCodeLength)
	buf := make([]byte, domain.RoomCodeLength*2)
	for len(out) < domain.RoomCodeLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, domain.RoomCodeAlphabet[int(b)%n])
			if len(out) == domain.RoomCodeLength {
				break
			}
		}
	}
	return domain.RoomID(out), nil
}
