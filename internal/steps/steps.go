package steps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Step is one timed unit of a guided practice sequence.
type Step struct {
	Label    string `json:"label"`
	Duration int    `json:"duration"`
	Tip      string `json:"tip"`
}

// ParseJSON decodes a JSON array of step objects. Elements that are not
// objects are skipped; input that is not an array yields an empty list.
func ParseJSON(data []byte) []Step {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}
	raw := make([]map[string]any, 0, len(elems))
	for _, elem := range elems {
		var record map[string]any
		decoder := json.NewDecoder(bytes.NewReader(elem))
		decoder.UseNumber()
		if err := decoder.Decode(&record); err != nil {
			continue
		}
		raw = append(raw, record)
	}
	return Normalize(raw)
}

// Normalize converts raw step records into validated steps, preserving order.
func Normalize(raw []map[string]any) []Step {
	out := make([]Step, 0, len(raw))
	for _, record := range raw {
		if record == nil {
			continue
		}
		label, ok := record["label"].(string)
		if !ok {
			continue
		}
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		tip, _ := record["tip"].(string)
		out = append(out, Step{
			Label:    label,
			Duration: seconds(record["duration"]),
			Tip:      strings.TrimSpace(tip),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func seconds(value any) int {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// Total returns the sum of all step durations in seconds.
func Total(list []Step) int {
	total := 0
	for _, step := range list {
		total += step.Duration
	}
	return total
}

// FormatClock renders seconds as mm:ss. Negative values render as 00:00.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
