// Package export renders history records as downloadable files.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheet = "Assets"
)

var columns = []string{
	"Asset Code", "Serial Number", "Asset Name", "Custodian", "Account",
	"Unit Price", "Unit Type", "Date", "Organization", "Issuer",
	"Year", "Month", "Device", "Status", "Scanned At", "Scanned By",
}

// Filename is the download name for a file created at t.
func Filename(t time.Time, ext string) string {
	return fmt.Sprintf("assets-%s.%s", t.Format("20060102-150405"), ext)
}

func JSON(records []model.Record) ([]byte, error) {
	if records == nil {
		records = []model.Record{}
	}
	return json.MarshalIndent(records, "", "  ")
}

func XLSX(records []model.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			r.AssetCode, r.SerialNumber, r.AssetName, r.Custodian, r.Account,
			r.UnitPrice, r.UnitType, r.Date, r.OrganizationCode, r.IssuerID,
			r.ReportingYear, r.ReportingMonth, r.DeviceID, string(r.Completeness),
			r.CreatedAt.UTC().Format(time.RFC3339), r.ScannedBy,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
