package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/toastd/internal/model"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testOptions() FormatterOptions {
	opts := DefaultFormatterOptions()
	opts.Now = func() time.Time { return testNow }
	return opts
}

func testRows() []Row {
	return ActiveRows([]model.Notification{
		{
			ID:        "01NEWEST",
			Message:   "Saved report.pdf",
			Kind:      model.KindSuccess,
			Duration:  5 * time.Second,
			CreatedAt: testNow.Add(-2 * time.Second),
			ExpiresAt: testNow.Add(3 * time.Second),
			Actions:   []model.Action{{Key: "open", Label: "Open"}, {Label: "Show folder"}},
		},
		{
			ID:        "01OLDER",
			Message:   "Disk almost full",
			Kind:      model.KindError,
			Sticky:    true,
			CreatedAt: testNow.Add(-5 * time.Minute),
		},
	})
}

func testHistoryRows() []Row {
	return HistoryRows([]model.HistoryEntry{
		{
			ID:        "01CLOSED",
			Message:   "Deleted 3 files",
			Kind:      model.KindInfo,
			Actions:   []model.Action{{Key: "undo", Label: "Undo"}},
			CreatedAt: testNow.Add(-2 * time.Hour).UnixMilli(),
			ClosedAt:  testNow.Add(-2*time.Hour + 4*time.Second).UnixMilli(),
			Reason:    model.CloseReasonAction,
			ActionKey: "undo",
		},
	})
}

func TestActiveRows(t *testing.T) {
	rows := testRows()
	require.Len(t, rows, 2)

	assert.Equal(t, []model.Action{{Key: "open", Label: "Open"}, {Key: "1", Label: "Show folder"}}, rows[0].Actions)
	assert.False(t, rows[0].Closed())
	assert.True(t, rows[1].Sticky)
}

func TestHistoryRows(t *testing.T) {
	rows := testHistoryRows()
	require.Len(t, rows, 1)

	assert.True(t, rows[0].Closed())
	assert.True(t, testNow.Add(-2*time.Hour).Equal(rows[0].CreatedAt))
	assert.Equal(t, model.CloseReasonAction, rows[0].Reason)
}

func TestPlainFormatter_Active(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(testOptions()).Format(&buf, testRows()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "[1] ✓ success Saved report.pdf", lines[0])
	assert.Contains(t, lines[1], "01NEWEST")
	assert.Contains(t, lines[1], "2 seconds ago")
	assert.Contains(t, lines[1], "expires 3 seconds from now")
	assert.Contains(t, lines[1], "actions: open=Open, 1=Show folder")

	assert.Contains(t, lines[2], "Disk almost full")
	assert.Contains(t, lines[3], "5 minutes ago")
	assert.Contains(t, lines[3], "sticky")
}

func TestPlainFormatter_History(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(testOptions()).Format(&buf, testHistoryRows()))

	out := buf.String()
	assert.Contains(t, out, "Deleted 3 files")
	assert.Contains(t, out, "action · action undo")
	assert.Contains(t, out, "1 hour ago")
}

func TestPlainFormatter_CustomTemplate(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{.Index}} {{kindIcon .Row.Kind}} {{truncate .Row.Message 8}} ({{.Remaining}})\n"

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testRows()))

	assert.Equal(t, "1 ✓ Saved... (expires 3 seconds from now)\n2 ✗ Disk ... (sticky)\n", buf.String())
}

func TestDmenuFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(testOptions()).Format(&buf, testRows()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1 | ✓ | 2 seconds ago | Saved report.pdf | 01NEWEST", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "| 01OLDER"))
}

func TestDmenuFormatter_NoIndexNoTime(t *testing.T) {
	opts := testOptions()
	opts.ShowIndex = false
	opts.ShowTime = false
	opts.Separator = "\t"

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testRows()[:1]))
	assert.Equal(t, "✓\tSaved report.pdf\t01NEWEST\n", buf.String())
}

func TestDmenuFormatter_InvalidTemplateFallsBack(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{.Broken"

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testRows()[:1]))
	assert.Contains(t, buf.String(), "01NEWEST")
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(testOptions()).Format(&buf, testRows()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "01NEWEST", decoded[0]["id"])
	assert.Equal(t, "success", decoded[0]["kind"])
	assert.Contains(t, decoded[0], "expires_at")
	assert.NotContains(t, decoded[0], "closed_at")
	assert.NotContains(t, decoded[1], "expires_at")
	assert.Equal(t, true, decoded[1]["sticky"])
}

func TestJSONFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(testOptions()).Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONFormatter_FormatSingle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(testOptions()).FormatSingle(&buf, testHistoryRows()[0]))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "action", decoded["reason"])
	assert.Equal(t, "undo", decoded["action_key"])
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter(testOptions()).Format(&buf, testHistoryRows()))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)

	assert.Equal(t, "01CLOSED", decoded[0]["id"])
	assert.Equal(t, "action", decoded[0]["reason"])
	assert.NotContains(t, decoded[0], "expires_at")
	assert.NotContains(t, buf.String(), "effect")
}

func TestIDsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testRows()))
	assert.Equal(t, "01NEWEST\n01OLDER\n", buf.String())
}

func TestNewFormatter(t *testing.T) {
	opts := testOptions()

	assert.IsType(t, &PlainFormatter{}, NewFormatter(FormatPlain, opts))
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON, opts))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter(FormatYAML, opts))
	assert.IsType(t, &DmenuFormatter{}, NewFormatter(FormatDmenu, opts))
	assert.IsType(t, &IDsFormatter{}, NewFormatter(FormatIDs, opts))
	assert.IsType(t, &PlainFormatter{}, NewFormatter("unknown", opts))
}

func TestParseFormatType(t *testing.T) {
	f, err := ParseFormatType(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormatType("")
	require.NoError(t, err)
	assert.Equal(t, FormatPlain, f)

	_, err = ParseFormatType("xml")
	assert.Error(t, err)
}

func TestFormatField(t *testing.T) {
	active := testRows()[0]
	closed := testHistoryRows()[0]

	tests := []struct {
		row      Row
		field    string
		expected string
	}{
		{active, "id", "01NEWEST"},
		{active, "kind", "success"},
		{active, "message", "Saved report.pdf"},
		{active, "expires", testNow.Add(3 * time.Second).Local().Format(timeLayout)},
		{active, "closed", ""},
		{active, "actions", "open=Open, 1=Show folder"},
		{closed, "reason", "action"},
		{closed, "action_key", "undo"},
		{closed, "created", testNow.Add(-2 * time.Hour).Local().Format(timeLayout)},
		{closed, "unknown", "Deleted 3 files"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatField(tt.row, tt.field))
		})
	}
}

func TestSanitizeMessage(t *testing.T) {
	assert.Equal(t, "line one line two", sanitizeMessage("line one\r\nline  two", 0, false))
	assert.Equal(t, "abcdefg...", sanitizeMessage("abcdefghijklmnop", 10, false))
	assert.Equal(t, "a\nb", sanitizeMessage("a\nb", 0, true))
}
