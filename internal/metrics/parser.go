package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the metric line shapes emitted by ore-cli on stdout.
type Kind string

const (
	KindStake      Kind = "stake"
	KindChange     Kind = "change"
	KindMultiplier Kind = "multiplier"
	KindDifficulty Kind = "difficulty"
)

// Sample is a single numeric metric parsed from a miner stdout line.
type Sample struct {
	Kind  Kind
	Value float64
}

// Submission is a confirmed transaction observed on miner stdout.
type Submission struct {
	TxHash     string
	ReportedAt time.Time
}

// Event is the result of parsing one miner stdout line. At most one of the
// pointer fields is set; a line that matches no known shape yields the zero
// Event with Matched false.
type Event struct {
	Matched    bool
	Sample     *Sample
	Submission *Submission
	Timestamp  *time.Time
}

// ParseLine inspects one stdout line from the miner and extracts a metric
// event when the line matches a known shape.
//
// Recognized shapes:
//
//	Stake: <f64>
//	Change: <f64>
//	Multiplier: <f64>x
//	Best hash: <hash> (difficulty <u64>)
//	Timestamp: <date> <time>
//	OK <txhash>
func ParseLine(line string) (Event, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Event{}, nil
	}
	fields := strings.Fields(trimmed)

	switch {
	case strings.HasPrefix(trimmed, "Stake:"):
		return numericEvent(KindStake, fields, 1)
	case strings.HasPrefix(trimmed, "Change:"):
		return numericEvent(KindChange, fields, 1)
	case strings.HasPrefix(trimmed, "Multiplier:"):
		if len(fields) < 2 {
			return Event{}, fmt.Errorf("multiplier line %q is missing a value", trimmed)
		}
		value, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "x"), 64)
		if err != nil {
			return Event{}, fmt.Errorf("parse multiplier from %q: %w", trimmed, err)
		}
		return sampleEvent(KindMultiplier, value), nil
	case strings.HasPrefix(trimmed, "Best hash:"):
		// Best hash: <hash> (difficulty <n>)
		if len(fields) < 5 {
			return Event{}, fmt.Errorf("best-hash line %q is missing a difficulty", trimmed)
		}
		value, err := strconv.ParseUint(strings.TrimSuffix(fields[4], ")"), 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("parse difficulty from %q: %w", trimmed, err)
		}
		return sampleEvent(KindDifficulty, float64(value)), nil
	case strings.HasPrefix(trimmed, "Timestamp:"):
		if len(fields) < 3 {
			return Event{}, fmt.Errorf("timestamp line %q is missing date or time", trimmed)
		}
		ts, err := time.Parse(time.RFC3339, fmt.Sprintf("%sT%sZ", fields[1], fields[2]))
		if err != nil {
			return Event{}, fmt.Errorf("parse timestamp from %q: %w", trimmed, err)
		}
		return Event{Matched: true, Timestamp: &ts}, nil
	case strings.HasPrefix(trimmed, "OK"):
		if len(fields) < 2 {
			return Event{}, fmt.Errorf("submission line %q is missing a tx hash", trimmed)
		}
		return Event{Matched: true, Submission: &Submission{TxHash: fields[1]}}, nil
	}

	return Event{}, nil
}

func numericEvent(kind Kind, fields []string, index int) (Event, error) {
	if len(fields) <= index {
		return Event{}, fmt.Errorf("%s line is missing a value", kind)
	}
	value, err := strconv.ParseFloat(fields[index], 64)
	if err != nil {
		return Event{}, fmt.Errorf("parse %s value %q: %w", kind, fields[index], err)
	}
	return sampleEvent(kind, value), nil
}

func sampleEvent(kind Kind, value float64) Event {
	return Event{Matched: true, Sample: &Sample{Kind: kind, Value: value}}
}

// ParseKind converts a string into a Kind, reporting whether it is known.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindStake:
		return KindStake, true
	case KindChange:
		return KindChange, true
	case KindMultiplier:
		return KindMultiplier, true
	case KindDifficulty:
		return KindDifficulty, true
	}
	return "", false
}
