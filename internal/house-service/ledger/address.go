package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// Address identifica uma conta derivada (house, bet, escrow, wallet, bankroll).
// É sempre o base58 de um digest de 32 bytes.
type Address string

const addressDomain = "coinflip-house/address/v1"

// Derive gera um endereço estável a partir de tags.
// Cada tag é prefixada com seu tamanho, então conjuntos de tags distintos nunca colidem.
func Derive(tags ...[]byte) Address {
	h := sha3.New256()
	h.Write([]byte(addressDomain))
	var n [4]byte
	for _, t := range tags {
		binary.BigEndian.PutUint32(n[:], uint32(len(t)))
		h.Write(n[:])
		h.Write(t)
	}
	return Address(base58.Encode(h.Sum(nil)))
}

// ParseAddress valida um endereço recebido de fora (HTTP, Kafka)
func ParseAddress(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: address %q: %v", ErrNotFound, s, err)
	}
	if len(b) != 32 {
		return "", fmt.Errorf("%w: address %q has %d bytes", ErrNotFound, s, len(b))
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }

// Bytes retorna o digest bruto; endereço inválido retorna nil.
func (a Address) Bytes() []byte {
	b, err := base58.Decode(string(a))
	if err != nil {
		return nil
	}
	return b
}

func le64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// HouseAddress deriva o endereço do pool ("house" + nome do pool)
func HouseAddress(pool string) Address {
	return Derive([]byte("house"), []byte(pool))
}

// BankrollAddress deriva a conta custodial que lastreia os pagamentos da house
func BankrollAddress(house Address) Address {
	return Derive([]byte("bankroll"), house.Bytes())
}

// BetAddress deriva a identidade da aposta a partir de (user, user_seed)
func BetAddress(user string, userSeed uint64) Address {
	return Derive([]byte("bet"), []byte(user), le64(userSeed))
}

// EscrowAddress deriva a conta de escrow exclusiva de uma aposta
func EscrowAddress(bet Address) Address {
	return Derive([]byte("escrow"), bet.Bytes())
}

// WalletAddress deriva a carteira de tokens de uma identidade
func WalletAddress(owner string) Address {
	return Derive([]byte("wallet"), []byte(owner))
}
