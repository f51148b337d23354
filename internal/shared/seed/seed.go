package seed

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// Source gera house seeds imprevisíveis. Quem chama nunca informa o palpite do
// usuário, então a seed não pode ser escolhida em função dele.
type Source struct {
	r io.Reader
}

// New usa crypto/rand
func New() *Source { return &Source{r: rand.Reader} }

// FromReader permite fixar a fonte (testes)
func FromReader(r io.Reader) *Source { return &Source{r: r} }

// Next lê 8 bytes da fonte
func (s *Source) Next() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(s.r, b[:]); err != nil {
		return 0, fmt.Errorf("read house seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
