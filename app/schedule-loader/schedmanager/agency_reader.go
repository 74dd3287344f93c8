package schedmanager

import (
	"github.com/suburail/delaycast/business/data/schedule"
)

// agencyRowReader implements rowReader for schedule.Agency
type agencyRowReader struct {
	batch []*schedule.Agency
}

func (r *agencyRowReader) addRow(parser *csvFileParser, dsTx *schedule.DataSetTransaction) error {
	agency, err := buildAgency(parser)
	if err != nil {
		return err
	}
	r.batch = append(r.batch, agency)
	if len(r.batch) == batchRowCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *agencyRowReader) flush(dsTx *schedule.DataSetTransaction) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := schedule.RecordAgencies(r.batch, dsTx); err != nil {
		return err
	}
	r.batch = nil
	return nil
}

func buildAgency(parser *csvFileParser) (*schedule.Agency, error) {
	agency := schedule.Agency{
		AgencyId:       parser.getString("agency_id", false),
		AgencyName:     parser.getString("agency_name", false),
		AgencyURL:      parser.getString("agency_url", false),
		AgencyTimezone: parser.getString("agency_timezone", false),
		AgencyLang:     parser.getStringPointer("agency_lang", true),
	}
	return &agency, parser.getError()
}
