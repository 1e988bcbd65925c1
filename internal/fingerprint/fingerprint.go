// Package fingerprint provides deterministic content identifiers for embedding spaces.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/hyperjump/diachron/internal/space"
)

const prefix = "space:"

// Space returns a stable identifier for the content of sp: its id, dimension, vocabulary
// order and vector bits. Two loads of the same model file yield the same fingerprint;
// retraining a period changes it, so cached transforms keyed by it never go stale.
func Space(sp *space.Space) string {
	h := sha256.New()
	var buf [8]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	writeString(sp.ID())
	binary.LittleEndian.PutUint64(buf[:], uint64(sp.Dimension()))
	h.Write(buf[:])
	sp.Each(func(_ int, word string, vec []float32) bool {
		writeString(word)
		for _, v := range vec {
			binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
			h.Write(buf[:4])
		}
		return true
	})
	return prefix + hex.EncodeToString(h.Sum(nil))
}

// Pair combines a source and reference fingerprint with a variant tag into one key.
func Pair(source, reference, variant string) string {
	sum := sha256.Sum256([]byte(source + "\x00" + reference + "\x00" + variant))
	return "pair:" + hex.EncodeToString(sum[:])
}
