// Package export writes a job's enriched leads to an XLSX workbook for
// handoff to sales tooling.
package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/prospect-labs/prospect-cli/internal/store"
)

var leadHeaders = []string{
	"Company", "Website", "Location", "Summary", "Persona", "Messaging", "Contacts", "Confidence",
}

// WriteLeadsXLSX writes the leads of one job to an XLSX file at path.
func WriteLeadsXLSX(path string, leads []store.JobLead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range leadHeaders {
		header.AddCell().SetString(h)
	}

	for _, jl := range leads {
		row := sheet.AddRow()
		row.AddCell().SetString(jl.Lead.CompanyName)
		row.AddCell().SetString(jl.Lead.Website)
		row.AddCell().SetString(jl.Lead.Location)

		if jl.Profile != nil {
			row.AddCell().SetString(jl.Profile.Summary)
			row.AddCell().SetString(jl.Profile.Persona)
			row.AddCell().SetString(jl.Profile.Messaging)
			row.AddCell().SetString(strings.Join(jl.Profile.Contacts, "; "))
			row.AddCell().SetString(jl.Profile.Confidence)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
