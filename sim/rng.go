package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === Subsystem Constants ===

const (
	// SubsystemArrival is the RNG subsystem for inter-arrival gaps.
	SubsystemArrival = "arrival"

	// SubsystemService is the RNG subsystem for service durations.
	SubsystemService = "service"
)

// StreamMode selects how subsystems share randomness.
type StreamMode string

const (
	// StreamsShared hands every subsystem the same generator, seeded with
	// the master seed. Draws interleave in event order, so the sequence of
	// gaps depends on when services start.
	StreamsShared StreamMode = "shared"
	// StreamsIsolated gives each subsystem its own derived seed, so the
	// arrival sequence is identical regardless of server count.
	StreamsIsolated StreamMode = "isolated"
)

// ParseStreamMode validates a stream mode name. Empty means shared.
func ParseStreamMode(s string) (StreamMode, error) {
	switch StreamMode(s) {
	case "", StreamsShared:
		return StreamsShared, nil
	case StreamsIsolated:
		return StreamsIsolated, nil
	}
	return "", fmt.Errorf("unknown stream mode %q; valid: shared, isolated", s)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic RNG instances per subsystem.
//
// Derivation formula (isolated mode):
//
//	subsystemSeed = masterSeed XOR fnv1a64(subsystemName)
//
// In shared mode every subsystem receives the single master generator.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	masterSeed int64
	mode       StreamMode
	shared     *rand.Rand
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(masterSeed int64, mode StreamMode) *PartitionedRNG {
	return &PartitionedRNG{
		masterSeed: masterSeed,
		mode:       mode,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance.
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if p.mode != StreamsIsolated {
		if p.shared == nil {
			p.shared = rand.New(rand.NewSource(p.masterSeed))
		}
		return p.shared
	}

	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.masterSeed ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// MasterSeed returns the seed used to create this PartitionedRNG.
func (p *PartitionedRNG) MasterSeed() int64 {
	return p.masterSeed
}

// Mode returns the stream mode.
func (p *PartitionedRNG) Mode() StreamMode {
	return p.mode
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
