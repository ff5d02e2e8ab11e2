package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/moimran/netssh-go/pkg/connection"
)

// Group is an ordered bucket of results sharing a key, preserving the
// batch's insertion order.
type Group struct {
	Key     string
	Results []CommandResult
}

// GroupByDevice buckets results per device, in submission order.
func GroupByDevice(b *BatchCommandResults) []Group {
	return groupBy(b, func(r CommandResult) string { return r.DeviceID })
}

// GroupByCommand buckets results per command text, in submission order.
func GroupByCommand(b *BatchCommandResults) []Group {
	return groupBy(b, func(r CommandResult) string { return r.Command })
}

func groupBy(b *BatchCommandResults, key func(CommandResult) string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range b.Results {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Results = append(groups[i].Results, r)
	}
	return groups
}

// CompareOutputs maps each distinct normalized output of a command to the
// devices that produced it, preserving first-seen order. Devices that agree
// land in the same bucket.
func CompareOutputs(b *BatchCommandResults, command string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range b.Results {
		if r.Command != command || r.Status != StatusSuccess {
			continue
		}
		norm := connection.Normalize(r.Output)
		i, ok := index[norm]
		if !ok {
			i = len(groups)
			index[norm] = i
			groups = append(groups, Group{Key: norm})
		}
		groups[i].Results = append(groups[i].Results, r)
	}
	return groups
}

// ToJSON renders the batch as a JSON array of records with stable field
// order.
func ToJSON(b *BatchCommandResults) (string, error) {
	data, err := json.MarshalIndent(b.Results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON parses records emitted by ToJSON.
func FromJSON(data string) ([]CommandResult, error) {
	var out []CommandResult
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// csvHeader is the column set shared by ToCSV and FromCSV.
var csvHeader = []string{
	"device_id", "device_type", "command", "status", "duration_ms", "error", "output",
}

// ToCSV renders the batch as CSV with a header row.
func ToCSV(b *BatchCommandResults) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, r := range b.Results {
		record := []string{
			r.DeviceID,
			r.DeviceType,
			r.Command,
			string(r.Status),
			strconv.FormatInt(r.DurationMs, 10),
			r.Error,
			r.Output,
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}

// FromCSV parses records emitted by ToCSV. Timing fields beyond duration
// are not carried by the CSV shape.
func FromCSV(data string) ([]CommandResult, error) {
	r := csv.NewReader(strings.NewReader(data))
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []CommandResult
	for i, row := range rows {
		if i == 0 {
			continue
		}
		durationMs, _ := strconv.ParseInt(row[4], 10, 64)
		out = append(out, CommandResult{
			DeviceID:   row[0],
			DeviceType: row[1],
			Command:    row[2],
			Status:     CommandStatus(row[3]),
			DurationMs: durationMs,
			Error:      row[5],
			Output:     row[6],
		})
	}
	return out, nil
}

// FormatTable renders a fixed-column ASCII table of the batch.
func FormatTable(b *BatchCommandResults) string {
	const (
		deviceWidth  = 20
		commandWidth = 30
		statusWidth  = 8
		timeWidth    = 10
	)

	var sb strings.Builder
	line := fmt.Sprintf("+%s+%s+%s+%s+\n",
		strings.Repeat("-", deviceWidth+2),
		strings.Repeat("-", commandWidth+2),
		strings.Repeat("-", statusWidth+2),
		strings.Repeat("-", timeWidth+2))

	sb.WriteString(line)
	sb.WriteString(fmt.Sprintf("| %-*s | %-*s | %-*s | %-*s |\n",
		deviceWidth, "Device", commandWidth, "Command",
		statusWidth, "Status", timeWidth, "Time (ms)"))
	sb.WriteString(line)

	for _, r := range b.Results {
		sb.WriteString(fmt.Sprintf("| %-*s | %-*s | %-*s | %*d |\n",
			deviceWidth, truncate(r.DeviceID, deviceWidth),
			commandWidth, truncate(r.Command, commandWidth),
			statusWidth, string(r.Status),
			timeWidth, r.DurationMs))
	}
	sb.WriteString(line)
	sb.WriteString(fmt.Sprintf("Devices: %d  Commands: %d  Success: %d  Failed: %d  Timeout: %d  Skipped: %d  Total: %dms\n",
		b.DeviceCount, b.CommandCount, b.SuccessCount,
		b.FailureCount, b.TimeoutCount, b.SkippedCount, b.DurationMs))
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
