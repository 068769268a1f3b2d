package courtlistener

import (
	"bytes"
	"encoding/json"
)

// ID is an upstream-assigned identifier. CourtListener is inconsistent
// about whether IDs arrive as JSON numbers or strings, so both decode to
// the string form. Anything else is treated as absent.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*id = ""
			return nil
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*id = ""
		return nil
	}
	*id = ID(n.String())
	return nil
}

// Docket is one case record as returned by the dockets endpoint. All
// descriptive fields are optional; upstream data is inconsistent.
type Docket struct {
	ID           ID     `json:"id"`
	CaseName     string `json:"case_name"`
	CourtID      string `json:"court_id"`
	DocketNumber string `json:"docket_number"`
	DateFiled    string `json:"date_filed"`
	AbsoluteURL  string `json:"absolute_url"`
}

// RecapDocument is one filed document as returned by the recap-documents
// endpoint.
type RecapDocument struct {
	ID               ID     `json:"id"`
	Description      string `json:"description"`
	DocumentNumber   string `json:"document_number"`
	AttachmentNumber int    `json:"attachment_number"`
	DateFiled        string `json:"date_filed"`
	AbsoluteURL      string `json:"absolute_url"`
	FilepathLocal    string `json:"filepath_local"`
	FilepathIA       string `json:"filepath_ia"`
}
