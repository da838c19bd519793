package helpers

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates various types of IDs
type IDGenerator struct {
	rand *rand.Rand
}

// NewIDGenerator creates a new ID generator
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateUUID generates a UUID v4
func (g *IDGenerator) GenerateUUID() string {
	return uuid.New().String()
}

// GenerateSessionID generates a riddle session ID (VARCHAR format)
// Format: RDL-YYYYMMDD-XXXXXX (e.g., RDL-20260823-A1B2C3)
func (g *IDGenerator) GenerateSessionID() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	suffix := g.randomAlphanumeric(6)

	return fmt.Sprintf("RDL-%s-%s", dateStr, suffix)
}

// GenerateDistributionID generates a burn distribution record ID
// Format: DST-<unix>-XXXX
func (g *IDGenerator) GenerateDistributionID() string {
	now := time.Now()
	timestamp := now.Unix()
	random := g.rand.Intn(9999)
	return fmt.Sprintf("DST-%d-%04d", timestamp, random)
}

// GenerateProposalID generates a governance proposal ID
// Format: GOV-YYYYMMDD-XXXXXX
func (g *IDGenerator) GenerateProposalID() string {
	now := time.Now()
	dateStr := now.Format("20060102")
	return fmt.Sprintf("GOV-%s-%s", dateStr, g.randomAlphanumeric(6))
}

// randomAlphanumeric generates a random alphanumeric string
func (g *IDGenerator) randomAlphanumeric(length int) string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		result[i] = chars[g.rand.Intn(len(chars))]
	}
	return string(result)
}
