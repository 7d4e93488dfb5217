// Package refgen produces human-readable ticket references and employee IDs.
//
// Ticket references are unique in practice only: two references generated
// in the same second share the timestamp part and differ by four random
// characters. Callers rely on the store's unique index and retry on
// collision.
package refgen

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
)

const (
	ticketPrefix   = "TC-"
	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffixLength   = 4
	employeeDigits = 5
)

// Generator renders ticket reference numbers.
type Generator struct {
	clock clock.Clock

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator builds a generator. A nil rnd uses a randomly seeded source.
func NewGenerator(c clock.Clock, rnd *rand.Rand) *Generator {
	if c == nil {
		c = clock.Real()
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{clock: c, rnd: rnd}
}

// TicketReference returns TC-<uppercase hex unix seconds>-<4 random chars>.
func (g *Generator) TicketReference() string {
	ts := strings.ToUpper(strconv.FormatInt(g.clock.Now().Unix(), 16))
	var b strings.Builder
	b.Grow(len(ticketPrefix) + len(ts) + 1 + suffixLength)
	b.WriteString(ticketPrefix)
	b.WriteString(ts)
	b.WriteByte('-')
	g.mu.Lock()
	for i := 0; i < suffixLength; i++ {
		b.WriteByte(suffixAlphabet[g.rnd.IntN(len(suffixAlphabet))])
	}
	g.mu.Unlock()
	return b.String()
}

var rolePrefixes = map[domain.Role]string{
	domain.RoleManager:    "MGR",
	domain.RoleHumanAgent: "HA",
	domain.RoleCTO:        "CTO",
	domain.RoleAdmin:      "ADM",
}

// RolePrefix returns the employee ID prefix for role. Customers have none.
func RolePrefix(role domain.Role) (string, bool) {
	prefix, ok := rolePrefixes[role]
	return prefix, ok
}

// FormatEmployeeID renders prefix followed by a zero padded sequence.
func FormatEmployeeID(prefix string, seq int) string {
	return fmt.Sprintf("%s%0*d", prefix, employeeDigits, seq)
}

// EmployeeSeq extracts the numeric sequence of an employee ID carrying prefix.
func EmployeeSeq(prefix, id string) (int, bool) {
	tail, ok := strings.CutPrefix(id, prefix)
	if !ok || tail == "" {
		return 0, false
	}
	n, err := strconv.Atoi(tail)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextEmployeeID returns the ID following highest. An empty or unparsable
// highest value starts the sequence at 1.
func NextEmployeeID(prefix, highest string) string {
	seq, _ := EmployeeSeq(prefix, highest)
	return FormatEmployeeID(prefix, seq+1)
}
