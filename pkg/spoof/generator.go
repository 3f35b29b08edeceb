package spoof

import (
	"crypto/rand"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// DefaultROM is the fixed MAC-style ROM value written for generated identities.
const DefaultROM = "0016CB445566"

// Serial numbers avoid characters that read like digits.
const serialAlphabet = "0123456789CDFGHJKLMNPQRTVWXY"

// Generator builds 12 character serials and 17 character MLBs from a random
// source. It does not encode the manufacturing week or the model code, so
// the values only need to be unique, not valid for Apple services.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a generator reading from source, or from crypto/rand
// when source is nil.
func NewGenerator(source io.Reader) *Generator {
	if source == nil {
		source = rand.Reader
	}
	return &Generator{rand: source}
}

func (g *Generator) Generate(model string) (types.SyntheticSerial, error) {
	if model == "" {
		return types.SyntheticSerial{}, errors.New("empty model")
	}
	serial, err := g.randomString("C02", 12)
	if err != nil {
		return types.SyntheticSerial{}, errors.Wrap(err, "serial number")
	}
	mlb, err := g.randomString(serial[:5], 17)
	if err != nil {
		return types.SyntheticSerial{}, errors.Wrap(err, "mlb")
	}
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return types.SyntheticSerial{}, errors.Wrap(err, "system uuid")
	}
	return types.SyntheticSerial{
		SerialNumber: serial,
		MLB:          mlb,
		ROM:          DefaultROM,
		SystemUUID:   strings.ToUpper(id.String()),
	}, nil
}

func (g *Generator) randomString(prefix string, length int) (string, error) {
	buf := make([]byte, length-len(prefix))
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, c := range buf {
		b.WriteByte(serialAlphabet[int(c)%len(serialAlphabet)])
	}
	return b.String(), nil
}
