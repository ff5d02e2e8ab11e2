package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch() *BatchCommandResults {
	b := NewBatch()
	start := time.Now()
	b.Add(Success("r1", "cisco_ios", "show version", "Cisco IOS, Version 15.2", start))
	b.Add(Failure("r1", "cisco_ios", "bad cmd", "% Invalid input", "command rejected", start))
	b.Add(Success("r2", "cisco_nxos", "show version", "NX-OS 9.3(8)", start))
	b.Add(Timeout("r2", "cisco_nxos", "ping", "pattern timeout", start))
	b.Add(Skipped("r3", "cisco_ios", "show version"))
	b.Complete()
	return b
}

func TestCounts(t *testing.T) {
	b := sampleBatch()

	assert.Equal(t, 5, b.CommandCount)
	assert.Equal(t, 2, b.SuccessCount)
	assert.Equal(t, 1, b.FailureCount)
	assert.Equal(t, 1, b.TimeoutCount)
	assert.Equal(t, 1, b.SkippedCount)
	assert.Equal(t, 3, b.DeviceCount)
}

func TestDeviceResultsOrdered(t *testing.T) {
	b := sampleBatch()

	rs := b.DeviceResults("r1")
	require.Len(t, rs, 2)
	assert.Equal(t, "show version", rs[0].Command)
	assert.Equal(t, "bad cmd", rs[1].Command)
}

func TestFilterByStatus(t *testing.T) {
	b := sampleBatch()

	assert.Len(t, b.FilterByStatus(StatusSuccess), 2)
	assert.Len(t, b.FilterByStatus(StatusSkipped), 1)
}

func TestGroupByDevicePreservesOrder(t *testing.T) {
	b := sampleBatch()

	groups := GroupByDevice(b)
	require.Len(t, groups, 3)
	assert.Equal(t, "r1", groups[0].Key)
	assert.Equal(t, "r2", groups[1].Key)
	assert.Equal(t, "r3", groups[2].Key)
	assert.Len(t, groups[0].Results, 2)
}

func TestGroupByCommand(t *testing.T) {
	b := sampleBatch()

	groups := GroupByCommand(b)
	require.NotEmpty(t, groups)
	assert.Equal(t, "show version", groups[0].Key)
	assert.Len(t, groups[0].Results, 3)
}

func TestCompareOutputs(t *testing.T) {
	b := NewBatch()
	start := time.Now()
	b.Add(Success("r1", "cisco_ios", "show ip route", "route A\r\n", start))
	b.Add(Success("r2", "cisco_ios", "show ip route", "route A\n", start))
	b.Add(Success("r3", "cisco_ios", "show ip route", "route B\n", start))
	b.Add(Failure("r4", "cisco_ios", "show ip route", "", "dead", start))
	b.Complete()

	groups := CompareOutputs(b, "show ip route")
	require.Len(t, groups, 2)
	// Normalization makes CRLF and LF variants agree.
	assert.Len(t, groups[0].Results, 2)
	assert.Len(t, groups[1].Results, 1)
}

func TestJSONRoundTrip(t *testing.T) {
	b := sampleBatch()

	data, err := ToJSON(b)
	require.NoError(t, err)

	parsed, err := FromJSON(data)
	require.NoError(t, err)
	require.Len(t, parsed, len(b.Results))
	for i := range parsed {
		assert.Equal(t, b.Results[i].DeviceID, parsed[i].DeviceID)
		assert.Equal(t, b.Results[i].Command, parsed[i].Command)
		assert.Equal(t, b.Results[i].Status, parsed[i].Status)
		assert.Equal(t, b.Results[i].Output, parsed[i].Output)
		assert.Equal(t, b.Results[i].DurationMs, parsed[i].DurationMs)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	b := sampleBatch()

	data, err := ToCSV(b)
	require.NoError(t, err)
	assert.Contains(t, data, "device_id,device_type,command,status,duration_ms,error,output")

	parsed, err := FromCSV(data)
	require.NoError(t, err)
	require.Len(t, parsed, len(b.Results))
	for i := range parsed {
		assert.Equal(t, b.Results[i].DeviceID, parsed[i].DeviceID)
		assert.Equal(t, b.Results[i].Status, parsed[i].Status)
		assert.Equal(t, b.Results[i].Output, parsed[i].Output)
	}
}

func TestFormatTable(t *testing.T) {
	b := sampleBatch()

	table := FormatTable(b)
	assert.Contains(t, table, "Device")
	assert.Contains(t, table, "Command")
	assert.Contains(t, table, "r1")
	assert.Contains(t, table, "success")
	assert.Contains(t, table, "Devices: 3")
	assert.Contains(t, table, "Commands: 5")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "this is...", truncate("this is far too long", 10))
}
