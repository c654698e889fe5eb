package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var timetable = Dataset{
	Headers: []string{"Date", "Department", "Subject"},
	Rows: []map[string]string{
		{"Date": "2025-08-04", "Department": "CSE", "Subject": "Data Structures"},
		{"Date": "2025-08-04", "Department": "IT", "Subject": "Data Structures"},
	},
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(timetable, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "Date,Department,Subject\n2025-08-04,CSE,Data Structures\n2025-08-04,IT,Data Structures\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter("College of Engineering").Render(timetable, "IA1 Timetable")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{}, "")
	assert.Error(t, err)
	_, err = NewPDFExporter("").Render(Dataset{}, "")
	assert.Error(t, err)
}
