package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var records = []model.Record{
	{ID: "r1", AssetCode: "A1", SerialNumber: "S1", AssetName: "Chair", ReportingYear: 2025, ReportingMonth: 6, Completeness: model.TagComplete, ScannedBy: "user-7"},
	{ID: "r2", AssetCode: "A2", SerialNumber: "S2", AssetName: model.OfflineAssetName, Completeness: model.TagEnrichmentFailed},
}

func TestFilename(t *testing.T) {
	at := time.Date(2025, 6, 3, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "assets-20250603-140509.json", Filename(at, "json"))
	assert.Equal(t, "assets-20250603-140509.xlsx", Filename(at, "xlsx"))
}

func TestJSON(t *testing.T) {
	data, err := JSON(records)
	require.NoError(t, err)

	var got []model.Record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got, 2)

	data, err = JSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestXLSX(t *testing.T) {
	data, err := XLSX(records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Asset Code", rows[0][0])
	assert.Equal(t, "A1", rows[1][0])
	assert.Equal(t, "Chair", rows[1][2])
	assert.Equal(t, "ENRICHMENT_FAILED", rows[2][13])
	assert.Equal(t, "Scanned By", rows[0][15])
	assert.Equal(t, "user-7", rows[1][15])
}
