package schedule

// Agency contains data from a record in a gtfs agency.txt file
type Agency struct {
	DataSetId      int64   `db:"data_set_id" json:"data_set_id"`
	AgencyId       string  `db:"agency_id" json:"agency_id"`
	AgencyName     string  `db:"agency_name" json:"agency_name"`
	AgencyURL      string  `db:"agency_url" json:"agency_url"`
	AgencyTimezone string  `db:"agency_timezone" json:"agency_timezone"`
	AgencyLang     *string `db:"agency_lang" json:"agency_lang"`
}

// RecordAgencies saves agencies to database in batch, falling back to per row
// upserts when the batch violates a constraint.
func RecordAgencies(agencies []*Agency, dsTx *DataSetTransaction) error {
	for _, agency := range agencies {
		agency.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into agency ( " +
		"data_set_id, " +
		"agency_id, " +
		"agency_name, " +
		"agency_url, " +
		"agency_timezone, " +
		"agency_lang) " +
		"values (" +
		":data_set_id, " +
		":agency_id, " +
		":agency_name, " +
		":agency_url, " +
		":agency_timezone, " +
		":agency_lang)"
	_, err := dsTx.Tx.NamedExec(dsTx.Tx.Rebind(statementString), agencies)
	if err == nil {
		return nil
	}

	upsertString := statementString +
		" on conflict (data_set_id, agency_id) do update set " +
		"agency_name = excluded.agency_name, " +
		"agency_url = excluded.agency_url, " +
		"agency_timezone = excluded.agency_timezone, " +
		"agency_lang = excluded.agency_lang"
	upsertString = dsTx.Tx.Rebind(upsertString)
	for _, agency := range agencies {
		if _, err = dsTx.Tx.NamedExec(upsertString, agency); err != nil {
			return err
		}
	}
	return nil
}
