package ledger

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

const outcomeDomain = "coinflip-house/outcome/v1"

// OutcomeDigest mistura os dois seeds e a identidade da aposta num SHA3-256.
// A identidade evita que o mesmo par de seeds produza o mesmo resultado em apostas diferentes.
func OutcomeDigest(userSeed, houseSeed uint64, bet Address) [32]byte {
	h := sha3.New256()
	h.Write([]byte(outcomeDomain))
	h.Write(bet.Bytes())
	h.Write(le64(userSeed))
	h.Write(le64(houseSeed))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Resolve retorna o resultado da moeda: true (heads) quando o byte menos significativo
// do digest é par, false (tails) caso contrário. Função pura.
func Resolve(userSeed, houseSeed uint64, bet Address) bool {
	d := OutcomeDigest(userSeed, houseSeed, bet)
	return d[len(d)-1]&1 == 0
}

// OutcomeDigestHex é o digest em hex, exposto para auditoria
func OutcomeDigestHex(userSeed, houseSeed uint64, bet Address) string {
	d := OutcomeDigest(userSeed, houseSeed, bet)
	return hex.EncodeToString(d[:])
}
