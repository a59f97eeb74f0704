package purchasecode

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// Alphabet excludes 0/1/I/L/O to keep codes unambiguous when read
	// aloud or scanned from a printed receipt.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// CodeLength number of random characters after the year segment
	CodeLength = 6

	prefix = "FG"
)

// Pattern matches a well-formed purchase code.
var Pattern = regexp.MustCompile(`^FG-\d{4}-[` + Alphabet + `]{6}$`)

// Generator issues purchase codes of the form FG-YYYY-XXXXXX. A bloom
// filter of issued codes is kept as a cheap collision pre-check; a false
// positive only costs a regeneration, and the database unique index on
// purchase_code stays authoritative.
type Generator struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	now    func() time.Time
}

// NewGenerator creates a purchase code generator sized for the expected
// number of codes issued per process lifetime.
func NewGenerator(expectedCodes uint) *Generator {
	if expectedCodes == 0 {
		expectedCodes = 100000
	}
	return &Generator{
		filter: bloom.NewWithEstimates(expectedCodes, 0.001),
		now:    time.Now,
	}
}

// Generate returns a new purchase code not previously issued by this
// generator.
func (g *Generator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	year := g.now().Year()
	for {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		full := fmt.Sprintf("%s-%d-%s", prefix, year, code)
		if g.filter.TestAndAddString(full) {
			// Probably issued before, draw again.
			continue
		}
		return full, nil
	}
}

// MarkIssued records a code loaded from storage so later generations
// avoid it.
func (g *Generator) MarkIssued(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter.AddString(code)
}

// Valid reports whether code is a well-formed purchase code.
func Valid(code string) bool {
	return Pattern.MatchString(code)
}

func randomCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}
